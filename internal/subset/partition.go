// Package subset splits a message's leveled key list into one key slice per
// observation subset.
package subset

import (
	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/structure"
)

// Layout is how a message stores its subsets.
type Layout int

const (
	// Single messages hold exactly one subset.
	Single Layout = iota
	// Compressed messages share one key list; every data key holds one value per subset.
	Compressed
	// Uncompressed messages repeat the key block once per subset, each block
	// introduced by a subsetNumber marker.
	Uncompressed
)

func (l Layout) String() string {
	switch l {
	case Single:
		return "single"
	case Compressed:
		return "compressed"
	case Uncompressed:
		return "uncompressed"
	default:
		return "unknown"
	}
}

// NoProjection marks a subset whose values are read as-is.
const NoProjection = -1

// Subset is the key slice of one observation subset.
type Subset struct {
	// Index is the 0-based subset position in the message.
	Index int
	Keys  []structure.Key
	// Projection selects the element of array values for compressed
	// messages, NoProjection otherwise.
	Projection int
}

// Plan is the partition of one message.
type Plan struct {
	Layout Layout
	// Header holds the message-level keys that precede the first subset
	// marker of an uncompressed message. They belong to every subset.
	Header   []structure.Key
	Subsets  []Subset
	Expected int
	// Extra counts subset markers beyond Expected. Their keys are dropped.
	Extra int
}

// Missing reports how many expected subsets could not be bounded.
func (p Plan) Missing() int {
	if d := p.Expected - len(p.Subsets); d > 0 {
		return d
	}
	return 0
}

// Partition classifies a message by its subset count and compression flag
// and splits keys accordingly. Malformed uncompressed messages never fail:
// whatever blocks can be bounded by markers are returned, at most
// numberOfSubsets of them.
func Partition(keys []structure.Key, numberOfSubsets int, compressed bool) Plan {
	switch {
	case compressed:
		n := max(numberOfSubsets, 1)
		p := Plan{Layout: Compressed, Expected: n, Subsets: make([]Subset, n)}
		for i := range n {
			p.Subsets[i] = Subset{Index: i, Keys: keys, Projection: i}
		}
		return p
	case numberOfSubsets <= 1:
		return Plan{
			Layout:   Single,
			Expected: 1,
			Subsets:  []Subset{{Index: 0, Keys: keys, Projection: NoProjection}},
		}
	default:
		return partitionBlocks(keys, numberOfSubsets)
	}
}

func partitionBlocks(keys []structure.Key, n int) Plan {
	p := Plan{Layout: Uncompressed, Expected: n}

	var starts []int
	for i, k := range keys {
		if k.Name == bufr.KeySubsetNumber {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		p.Header = keys
		return p
	}

	p.Header = keys[:starts[0]]
	if len(starts) > n {
		p.Extra = len(starts) - n
	}
	p.Subsets = make([]Subset, 0, min(len(starts), n))
	for i, start := range starts[:min(len(starts), n)] {
		end := len(keys)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		p.Subsets = append(p.Subsets, Subset{Index: i, Keys: keys[start:end], Projection: NoProjection})
	}
	return p
}
