// Command genmock writes decoded BUFR message fixtures and the observation
// rows the pipeline produces for them. It runs the real engine and
// transformer so the expected output matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -messages-out data/mock/bufr_240426.jsonl.zst \
//	  -rows-out data/mock/bufr_240426_rows.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/bufr/bufrtest"
	"github.com/couchcryptid/storm-data-bufr/internal/config"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/engine"
	"github.com/couchcryptid/storm-data-bufr/internal/pipeline"
)

var baseDate = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

// mockRow is one produced event in fixture form.
type mockRow struct {
	Key     string            `json:"key"`
	Headers map[string]string `json:"headers"`
	Value   json.RawMessage   `json:"value"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	messagesOut := flag.String("messages-out", "", "output path for decoded messages (JSONL, .zst to compress)")
	rowsOut := flag.String("rows-out", "", "output path for the expected rows (JSON)")
	columns := flag.String("columns", config.DefaultColumns, "comma-separated output columns")
	hours := flag.Int("hours", 3, "number of hourly synoptic reports to generate")
	flag.Parse()

	if *messagesOut == "" || *rowsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -messages-out, -rows-out")
	}

	// Set a fixed clock for reproducible processed_at headers.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	msgs := fixtures(*hours)

	if err := writeMessages(*messagesOut, msgs); err != nil {
		return err
	}
	log.Printf("messages: %d written to %s", len(msgs), *messagesOut)

	eng, err := engine.New(engine.Request{Columns: config.SplitList(*columns)})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	transformer := pipeline.NewTransformer(eng, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var rows []mockRow //nolint:prealloc // size depends on extraction results
	for i, m := range msgs {
		data, err := bufr.EncodeJSON(m)
		if err != nil {
			return fmt.Errorf("encode message %d: %w", i, err)
		}
		out, err := transformer.Transform(context.Background(), domain.RawEvent{
			Key:    []byte(fmt.Sprintf("mock-%03d", i)),
			Value:  data,
			Offset: int64(i),
		})
		if err != nil {
			return fmt.Errorf("transform message %d: %w", i, err)
		}
		for _, ev := range out {
			rows = append(rows, mockRow{Key: string(ev.Key), Headers: ev.Headers, Value: ev.Value})
		}
	}

	if err := writeJSON(*rowsOut, rows); err != nil {
		return err
	}
	log.Printf("rows: %d written to %s", len(rows), *rowsOut)
	return nil
}

// fixtures returns hourly surface reports alternating between compressed and
// uncompressed encodings, then one sounding per station at 12 UTC.
func fixtures(hours int) []*bufr.MapMessage {
	msgs := make([]*bufr.MapMessage, 0, hours+len(bufrtest.Stations))
	for h := range hours {
		at := baseDate.Add(time.Duration(12+h) * time.Hour)
		if h%2 == 0 {
			msgs = append(msgs, bufrtest.Synop(at, bufrtest.Stations))
		} else {
			msgs = append(msgs, bufrtest.SynopUncompressed(at, bufrtest.Stations))
		}
	}
	for _, s := range bufrtest.Stations {
		msgs = append(msgs, bufrtest.Temp(baseDate.Add(12*time.Hour), s, bufrtest.Levels))
	}
	return msgs
}

func writeMessages(path string, msgs []*bufr.MapMessage) error {
	w, err := bufr.CreateFile(path)
	if err != nil {
		return err
	}
	for i, m := range msgs {
		data, err := bufr.EncodeJSON(m)
		if err != nil {
			w.Close()
			return fmt.Errorf("encode message %d: %w", i, err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			w.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return w.Close()
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
