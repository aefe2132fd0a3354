package bufr

import (
	"errors"
	"strconv"
	"strings"
)

// Missing-value sentinels surfaced by decoders for all-ones BUFR fields.
const (
	MissingDouble float64 = -1e100
	MissingLong   int64   = 2147483647
)

// Well-known key names.
const (
	KeySubsetNumber          = "subsetNumber"
	KeyOperator              = "operator"
	KeyEdition               = "edition"
	KeyMasterTableNumber     = "masterTableNumber"
	KeyNumberOfSubsets       = "numberOfSubsets"
	KeyCompressedData        = "compressedData"
	KeyUnexpandedDescriptors = "unexpandedDescriptors"

	codeSuffix  = "->code"
	unitsSuffix = "->units"
)

// ErrKeyNotFound is returned by Get when a message has no such key.
var ErrKeyNotFound = errors.New("key not found")

// ReplicationFactorKeys name the delayed replication counters that decide
// how a message's descriptors expand.
var ReplicationFactorKeys = []string{
	"delayedDescriptorReplicationFactor",
	"shortDelayedDescriptorReplicationFactor",
	"extendedDelayedDescriptorReplicationFactor",
}

// DefaultHeaderKeys are keys available before the data section is unpacked.
// They are used for header pre-filtering when a message does not list its
// own header keys.
var DefaultHeaderKeys = []string{
	KeyEdition,
	KeyMasterTableNumber,
	"bufrHeaderCentre",
	"bufrHeaderSubCentre",
	"updateSequenceNumber",
	"dataCategory",
	"internationalDataSubCategory",
	"dataSubCategory",
	"masterTablesVersionNumber",
	"localTablesVersionNumber",
	"typicalYear",
	"typicalMonth",
	"typicalDay",
	"typicalHour",
	"typicalMinute",
	"typicalSecond",
	KeyNumberOfSubsets,
	"observedData",
	KeyCompressedData,
	"rdbType",
	"oldSubtype",
	"ident",
}

// Message is the minimal decoder capability the engine consumes.
type Message interface {
	// Keys returns every key of the message in document order, rank-prefixed
	// where the decoder disambiguates repeats ("#2#latitude").
	Keys() []string
	// Get resolves a key to its decoded value. Suffixes "->code" and
	// "->units" address the key's descriptor code and unit string.
	Get(key string) (any, error)
}

// Unpacker is implemented by messages whose data section must be expanded
// before data keys can be read.
type Unpacker interface {
	Unpack() error
}

// Releaser is implemented by messages holding decoder resources.
type Releaser interface {
	Release()
}

// Coordinator is implemented by decoders that classify coordinate keys themselves.
type Coordinator interface {
	IsCoordinate(key string) bool
}

// Headered is implemented by messages that know which keys belong to the header.
type Headered interface {
	HeaderKeys() []string
}

// SplitRank separates the rank prefix of a raw key: "#3#latitude" yields
// (3, "latitude"); a key without prefix has rank 0.
func SplitRank(raw string) (int, string) {
	if !strings.HasPrefix(raw, "#") {
		return 0, raw
	}
	rest := raw[1:]
	i := strings.IndexByte(rest, '#')
	if i < 0 {
		return 0, raw
	}
	rank, err := strconv.Atoi(rest[:i])
	if err != nil {
		return 0, raw
	}
	return rank, rest[i+1:]
}

// IsMissing reports whether v is one of the decoder's missing sentinels.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return x == MissingDouble
	case float32:
		return float64(x) == MissingDouble
	case int64:
		return x == MissingLong
	case int:
		return int64(x) == MissingLong
	case int32:
		return int64(x) == MissingLong
	}
	return false
}

// Normalize maps missing sentinels to nil and trims the space padding
// decoders leave on fixed-width character values.
func Normalize(v any) any {
	if IsMissing(v) {
		return nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		return s
	}
	return v
}
