package structure

import (
	"strconv"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
)

// Key is one decoded key with its reconstructed nesting level.
type Key struct {
	Level int
	Rank  int
	Name  string
	// Raw is the rank-prefixed key used for value lookups ("#2#latitude").
	Raw string
}

// NewKey splits raw into rank and name.
func NewKey(level int, raw string) Key {
	rank, name := bufr.SplitRank(raw)
	return Key{Level: level, Rank: rank, Name: name, Raw: raw}
}

func (k Key) String() string {
	return strconv.Itoa(k.Level) + ":" + k.Raw
}
