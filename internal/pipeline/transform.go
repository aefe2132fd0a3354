package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/engine"
	"github.com/couchcryptid/storm-data-bufr/internal/table"
)

// keyColumns are tried in order for the sink message key.
var keyColumns = []string{"station_id", "WSI", "WMO_station_id"}

// BUFRTransformer implements Transformer by running each decoded message
// through the structure engine and emitting one event per observation row.
type BUFRTransformer struct {
	engine *engine.Engine
	logger *slog.Logger
	count  atomic.Int64
}

// NewTransformer creates a BUFRTransformer. The engine's count filter sees
// the ordinal of each message since the transformer was created.
func NewTransformer(e *engine.Engine, logger *slog.Logger) *BUFRTransformer {
	return &BUFRTransformer{
		engine: e,
		logger: logger,
	}
}

func (t *BUFRTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error) {
	msg, err := bufr.DecodeJSON(raw.Value)
	if err != nil {
		return nil, err
	}
	count := int(t.count.Add(1))

	rows, err := t.engine.Process(ctx, msg, count)
	if err != nil {
		return nil, fmt.Errorf("process message: %w", err)
	}
	if len(rows) == 0 {
		t.logger.Debug("message produced no rows", "offset", raw.Offset, "count", count)
		return nil, nil
	}

	processedAt := domain.Now()
	out := make([]domain.OutputEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := SerializeRow(row, raw.Key, processedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// SerializeRow encodes one observation row for the sink topic. The key is
// the row's station identifier when it has one, fallback otherwise.
func SerializeRow(row table.Row, fallback []byte, processedAt time.Time) (domain.OutputEvent, error) {
	data, err := row.MarshalJSON()
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize observation row: %w", err)
	}
	return domain.OutputEvent{
		Key:   rowKey(row, fallback),
		Value: data,
		Headers: map[string]string{
			"columns":      strings.Join(row.Names(), ","),
			"processed_at": processedAt.Format(time.RFC3339),
		},
	}, nil
}

func rowKey(row table.Row, fallback []byte) []byte {
	for _, name := range keyColumns {
		if v, ok := row.Get(name); ok && v != nil {
			return []byte(table.FormatValue(v))
		}
	}
	return fallback
}
