package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coordsOf(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(raw string) bool {
		return set[NewKey(0, raw).Name]
	}
}

func levelsOf(keys []Key) []int {
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = k.Level
	}
	return out
}

func TestWalk_SubsetAndLatitudeScopes(t *testing.T) {
	keys := []string{
		"edition", "#1#year", "#1#subsetNumber", "#1#latitude", "#1#temperature",
		"#2#latitude", "#2#temperature", "#2#subsetNumber", "#3#temperature",
	}

	got := Levels(keys, coordsOf("subsetNumber", "latitude"))

	assert.Equal(t, []int{0, 0, 0, 1, 2, 1, 2, 0, 1}, levelsOf(got))
	assert.Equal(t, Key{Level: 1, Rank: 2, Name: "latitude", Raw: "#2#latitude"}, got[5])
	assert.Equal(t, Key{Level: 0, Rank: 0, Name: "edition", Raw: "edition"}, got[0])
}

func TestWalk_Deterministic(t *testing.T) {
	keys := []string{
		"#1#blockNumber", "#1#stationNumber", "#1#latitude", "#1#pressure",
		"#1#airTemperature", "#2#pressure", "#2#airTemperature", "#3#pressure",
	}
	isCoord := coordsOf("blockNumber", "stationNumber", "latitude", "pressure")

	first := Levels(keys, isCoord)
	second := Levels(keys, isCoord)
	assert.Equal(t, first, second)
}

func TestWalk_NonRepeatingCoordinateStaysAtZero(t *testing.T) {
	got := Levels([]string{"#1#latitude", "#1#airTemperature"}, coordsOf("latitude"))
	assert.Equal(t, []int{0, 1}, levelsOf(got))
}

func TestWalk_RecurringOuterCoordinateClosesInnerScopes(t *testing.T) {
	keys := []string{
		"#1#timePeriod", "#1#heightOfSensor", "#1#windSpeed",
		"#2#heightOfSensor", "#2#windSpeed",
		"#2#timePeriod", "#3#windSpeed",
	}
	got := Levels(keys, coordsOf("timePeriod", "heightOfSensor"))
	assert.Equal(t, []int{0, 1, 2, 1, 2, 0, 1}, levelsOf(got))
}

func TestWalk_StopsWhenConsumerStops(t *testing.T) {
	var n int
	for range Walk([]string{"a", "b", "c"}, coordsOf()) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestFilterKeys(t *testing.T) {
	keys := Levels([]string{"edition", "#1#latitude", "#1#temperature", "#2#latitude", "#2#temperature"}, coordsOf("latitude"))

	t.Run("empty include keeps all", func(t *testing.T) {
		got := FilterKeys(keys, nil)
		require.Len(t, got, 5)
		got[0].Name = "changed"
		assert.Equal(t, "edition", keys[0].Name, "input must not be aliased")
	})

	t.Run("by name", func(t *testing.T) {
		got := FilterKeys(keys, []string{"temperature"})
		assert.Equal(t, []string{"#1#temperature", "#2#temperature"}, []string{got[0].Raw, got[1].Raw})
	})

	t.Run("by raw literal", func(t *testing.T) {
		got := FilterKeys(keys, []string{"#2#latitude", "edition"})
		require.Len(t, got, 2)
		assert.Equal(t, "edition", got[0].Raw)
		assert.Equal(t, "#2#latitude", got[1].Raw)
		assert.Equal(t, keys[3].Level, got[1].Level, "filtering keeps walked levels")
		assert.Equal(t, 0, got[1].Level, "a reopened coordinate returns to its first level")
	})
}
