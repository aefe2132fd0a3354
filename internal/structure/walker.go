package structure

import "iter"

// scope is an open coordinate and the level it was opened at.
type scope struct {
	name  string
	level int
}

// Walk assigns a nesting level to every key in order. isCoord classifies a
// raw key as a coordinate descriptor.
//
// A coordinate that is already open closes every scope opened after it,
// itself included, and takes the level it had when first opened. Then every
// coordinate opens a scope one level deeper for the keys that follow.
func Walk(keys []string, isCoord func(raw string) bool) iter.Seq[Key] {
	return func(yield func(Key) bool) {
		var stack []scope
		open := make(map[string]int)
		level := 0

		for _, raw := range keys {
			k := NewKey(0, raw)
			coord := isCoord(raw)

			for coord && open[k.Name] > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				open[top.name]--
				level = top.level
			}

			k.Level = level
			if !yield(k) {
				return
			}

			if coord {
				stack = append(stack, scope{name: k.Name, level: level})
				open[k.Name]++
				level++
			}
		}
	}
}

// Levels walks keys and collects the result.
func Levels(keys []string, isCoord func(raw string) bool) []Key {
	out := make([]Key, 0, len(keys))
	for k := range Walk(keys, isCoord) {
		out = append(out, k)
	}
	return out
}
