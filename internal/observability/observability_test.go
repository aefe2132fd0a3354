package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("message processed", "rows", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "message processed", line["msg"])
	assert.InDelta(t, 3, line["rows"], 0)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "debug", "text")

	logger.Debug("shape cached", "shape", "abc")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "shape=abc")
}

func TestMetrics_ObserveShapeCache(t *testing.T) {
	m := NewMetricsForTesting()

	m.ObserveShapeCache(true)
	m.ObserveShapeCache(true)
	m.ObserveShapeCache(false)

	assert.InDelta(t, 2, counterValue(t, m, "hit"), 0)
	assert.InDelta(t, 1, counterValue(t, m, "miss"), 0)
}

func counterValue(t *testing.T, m *Metrics, result string) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.ShapeCache.WithLabelValues(result).Write(&out))
	return out.GetCounter().GetValue()
}
