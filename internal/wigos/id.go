// Package wigos models the four-part WIGOS station identifier
// (series-issuer-issue number-local identifier, e.g. "0-20000-0-06260").
package wigos

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
)

// Raw keys carrying the identifier components in BUFR.
const (
	KeySeries      = "wigosIdentifierSeries"
	KeyIssuer      = "wigosIssuerOfIdentifier"
	KeyIssueNumber = "wigosIssueNumber"
	KeyLocal       = "wigosLocalIdentifierCharacter"
)

// Keys lists the component keys in identifier order.
var Keys = []string{KeySeries, KeyIssuer, KeyIssueNumber, KeyLocal}

// ID is a WIGOS station identifier.
type ID struct {
	Series      int
	Issuer      int
	IssueNumber int
	Local       string
}

func (id ID) String() string {
	return fmt.Sprintf("%d-%d-%d-%s", id.Series, id.Issuer, id.IssueNumber, id.Local)
}

func (id ID) validate() error {
	if strings.TrimSpace(id.Local) == "" {
		return fmt.Errorf("wigos id: empty local identifier")
	}
	return nil
}

// Parse reads the hyphenated string form. The local part may itself
// contain hyphens.
func Parse(s string) (ID, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 4)
	if len(parts) != 4 {
		return ID{}, fmt.Errorf("parse wigos id %q: want 4 hyphen-separated parts", s)
	}
	return FromParts(parts[0], parts[1], parts[2], parts[3])
}

// FromParts builds an ID from four components of any decoded representation.
func FromParts(series, issuer, issueNumber, local any) (ID, error) {
	var id ID
	var ok bool
	if id.Series, ok = component(series); !ok {
		return ID{}, fmt.Errorf("wigos id: invalid series %v", series)
	}
	if id.Issuer, ok = component(issuer); !ok {
		return ID{}, fmt.Errorf("wigos id: invalid issuer %v", issuer)
	}
	if id.IssueNumber, ok = component(issueNumber); !ok {
		return ID{}, fmt.Errorf("wigos id: invalid issue number %v", issueNumber)
	}
	switch l := local.(type) {
	case string:
		id.Local = strings.TrimSpace(l)
	case nil:
		return ID{}, fmt.Errorf("wigos id: missing local identifier")
	default:
		if n, ok := bufr.AsInt(l); ok {
			id.Local = strconv.Itoa(n)
		} else {
			return ID{}, fmt.Errorf("wigos id: invalid local identifier %v", local)
		}
	}
	if id.Local == "" {
		return ID{}, fmt.Errorf("wigos id: empty local identifier")
	}
	return id, nil
}

// Normalize converts the accepted representations (ID, *ID, string, or a
// four element slice/array) to an ID.
func Normalize(v any) (ID, error) {
	switch x := v.(type) {
	case ID:
		return x, x.validate()
	case *ID:
		if x == nil {
			return ID{}, fmt.Errorf("wigos id: nil")
		}
		return *x, x.validate()
	case string:
		return Parse(x)
	case fmt.Stringer:
		return Parse(x.String())
	case []any:
		if len(x) != 4 {
			return ID{}, fmt.Errorf("wigos id: want 4 components, got %d", len(x))
		}
		return FromParts(x[0], x[1], x[2], x[3])
	case [4]any:
		return FromParts(x[0], x[1], x[2], x[3])
	case []string:
		if len(x) != 4 {
			return ID{}, fmt.Errorf("wigos id: want 4 components, got %d", len(x))
		}
		return FromParts(x[0], x[1], x[2], x[3])
	}
	return ID{}, fmt.Errorf("wigos id: unsupported representation %T", v)
}

// Equal compares two representations after normalization. Unparseable
// values are never equal.
func Equal(a, b any) bool {
	x, err := Normalize(a)
	if err != nil {
		return false
	}
	y, err := Normalize(b)
	if err != nil {
		return false
	}
	return x == y
}

func component(v any) (int, bool) {
	if bufr.IsMissing(v) {
		return 0, false
	}
	return bufr.AsInt(v)
}
