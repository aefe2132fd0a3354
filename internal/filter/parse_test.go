package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"95..105", Range{Min: int64(95), Max: int64(105)}},
		{"95..", Range{Min: int64(95)}},
		{"..0.5", Range{Max: 0.5}},
		{"-10..-5", Range{Min: int64(-10), Max: int64(-5)}},
		{"1,2, 3", []any{int64(1), int64(2), int64(3)}},
		{"06260", "06260"},
		{"0", int64(0)},
		{"12.5", 12.5},
		{"DE BILT", "DE BILT"},
		{"0-20000-0-06260", "0-20000-0-06260"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSpec(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSpec_Errors(t *testing.T) {
	for _, in := range []string{"", "  ", "..", ",,"} {
		_, err := ParseSpec(in)
		assert.Error(t, err, "%q", in)
	}
}

func TestParseFilters(t *testing.T) {
	got, err := ParseFilters("pressure=95..; blockNumber=6,10 ;;WSI=0-20000-0-06260", ";")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"pressure":    Range{Min: int64(95)},
		"blockNumber": []any{int64(6), int64(10)},
		"WSI":         "0-20000-0-06260",
	}, got)

	_, err = ParseFilters("pressure", ";")
	require.Error(t, err)
	_, err = ParseFilters("=5", ";")
	require.Error(t, err)
}
