package structure

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
)

// Shape fingerprints the structure of a message. Two messages with equal
// shapes expand to the same key sequence, so walking one stands in for the
// other.
type Shape struct {
	Edition     int
	MasterTable int
	Subsets     int
	Compressed  bool
	// Descriptors is the canonical form of the unexpanded descriptor list.
	Descriptors string
	// Replications lists every delayed replication factor in key order.
	Replications string
}

// ShapeOf computes the shape of an unpacked message.
func ShapeOf(h *bufr.Handle) Shape {
	s := Shape{
		Subsets:    h.NumberOfSubsets(),
		Compressed: h.Compressed(),
	}
	s.Edition, _ = h.Int(bufr.KeyEdition)
	s.MasterTable, _ = h.Int(bufr.KeyMasterTableNumber)
	if v, err := h.Get(bufr.KeyUnexpandedDescriptors); err == nil {
		s.Descriptors = canonical(v)
	}

	replication := make(map[string]struct{}, len(bufr.ReplicationFactorKeys))
	for _, k := range bufr.ReplicationFactorKeys {
		replication[k] = struct{}{}
	}
	var b strings.Builder
	for _, raw := range h.Keys() {
		_, name := bufr.SplitRank(raw)
		if _, ok := replication[name]; !ok {
			continue
		}
		v, err := h.Get(raw)
		if err != nil {
			continue
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(canonical(v))
		b.WriteByte(';')
	}
	s.Replications = b.String()
	return s
}

func (s Shape) String() string {
	return fmt.Sprintf("ed%d/mt%d/n%d/c%t/[%s]/{%s}",
		s.Edition, s.MasterTable, s.Subsets, s.Compressed, s.Descriptors, s.Replications)
}

// canonical renders a scalar or list value as a stable string.
func canonical(v any) string {
	switch x := v.(type) {
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = canonical(e)
		}
		return strings.Join(parts, ",")
	case []int64:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ",")
	case []int:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ",")
	case []float64:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ",")
	}
	if n, ok := bufr.AsInt(v); ok {
		return fmt.Sprint(n)
	}
	return fmt.Sprint(v)
}
