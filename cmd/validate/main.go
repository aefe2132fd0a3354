// Command validate performs end-to-end integrity checks on the mock data of
// the BUFR pipeline: the decoded message fixture and the observation rows
// expected from it. It verifies decoding, subset structure, row
// reproduction through the real engine, and row schema.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -messages data/mock/bufr_240426.jsonl.zst \
//	  -rows data/mock/bufr_240426_rows.json
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/config"
	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/engine"
	"github.com/couchcryptid/storm-data-bufr/internal/pipeline"
	"github.com/couchcryptid/storm-data-bufr/internal/structure"
	"github.com/couchcryptid/storm-data-bufr/internal/subset"
	"github.com/couchcryptid/storm-data-bufr/internal/wigos"
)

// processedAt matches the fixed clock genmock runs with.
var processedAt = time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// mockRow mirrors genmock's row fixture.
type mockRow struct {
	Key     string            `json:"key"`
	Headers map[string]string `json:"headers"`
	Value   json.RawMessage   `json:"value"`
}

// decoded is one fixture line and its decoding outcome.
type decoded struct {
	line int
	msg  *bufr.MapMessage
	err  error
}

func main() {
	messages := flag.String("messages", "", "path to the decoded message fixture (JSONL, .zst accepted)")
	rows := flag.String("rows", "", "path to the expected rows fixture (JSON)")
	columns := flag.String("columns", config.DefaultColumns, "comma-separated output columns genmock used")
	flag.Parse()

	if *messages == "" || *rows == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*messages, *rows, config.SplitList(*columns)); code != 0 {
		os.Exit(code)
	}
}

func run(messagesPath, rowsPath string, columns []string) int {
	domain.SetClock(clockwork.NewFakeClockAt(processedAt))
	defer domain.SetClock(nil)

	// ── Load all data sources ──
	fmt.Println("=== BUFR Data Integrity Validation ===")
	fmt.Println()

	msgs, err := loadMessages(messagesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load messages: %v\n", err)
		return 1
	}

	expected, err := loadJSON[mockRow](rowsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load rows: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateDecoding(msgs),
		validateSubsets(msgs),
		validateReproduction(msgs, expected, columns),
		validateRowSchema(expected),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d messages, %d expected rows\n", len(msgs), len(expected))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// loadMessages decodes every line, keeping failures for phase 1 to report.
func loadMessages(path string) ([]decoded, error) {
	f, err := bufr.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var out []decoded
	for i, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		m, err := bufr.DecodeJSON(line)
		out = append(out, decoded{line: i + 1, msg: m, err: err})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no messages in %s", path)
	}
	return out, nil
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Decoding ──
// Validates that every line is a well-formed message with the header keys
// the engine depends on.

func validateDecoding(msgs []decoded) *phase {
	p := &phase{name: "Phase 1: Decoding (wire format)"}
	for _, d := range msgs {
		if d.err != nil {
			p.errorf("line %d: %v", d.line, d.err)
			continue
		}
		h := bufr.Wrap(d.msg)
		for _, key := range []string{bufr.KeyNumberOfSubsets, bufr.KeyCompressedData} {
			if _, ok := h.Int(key); !ok {
				p.errorf("line %d: header %q missing or not an integer", d.line, key)
			}
		}
		if len(d.msg.Keys()) == len(d.msg.HeaderKeys()) {
			p.errorf("line %d: message has no data keys", d.line)
		}
	}
	return p
}

// ── Phase 2: Subset Structure ──
// Validates that every expected subset can be bounded and that compressed
// arrays carry one value per subset.

func validateSubsets(msgs []decoded) *phase {
	p := &phase{name: "Phase 2: Subset Structure (partition)"}
	cache := structure.NewShapeCache()
	for _, d := range msgs {
		if d.err != nil {
			continue
		}
		h := bufr.Wrap(d.msg)
		plan := subset.Partition(cache.Get(h, nil), h.NumberOfSubsets(), h.Compressed())
		if missing := plan.Missing(); missing > 0 {
			p.errorf("line %d: %s layout: %d of %d subsets have no marker",
				d.line, plan.Layout, missing, plan.Expected)
		}
		if plan.Layout == subset.Compressed {
			checkCompressedArrays(p, d, h)
		}
	}
	stats := cache.Stats()
	fmt.Printf("  Note: %d messages walked as %d distinct shapes\n", stats.Hits+stats.Misses, stats.Shapes)
	return p
}

func checkCompressedArrays(p *phase, d decoded, h *bufr.Handle) {
	n := h.NumberOfSubsets()
	for _, key := range d.msg.Keys() {
		if h.IsHeaderKey(key) {
			continue
		}
		v, err := h.Get(key)
		if err != nil {
			p.errorf("line %d: key %q: %v", d.line, key, err)
			continue
		}
		if arr, ok := v.([]any); ok && len(arr) != n {
			p.errorf("line %d: key %q has %d values for %d subsets", d.line, key, len(arr), n)
		}
	}
}

// ── Phase 3: Row Reproduction ──
// Re-runs the pipeline transformer and compares with the expected rows.

func validateReproduction(msgs []decoded, expected []mockRow, columns []string) *phase {
	p := &phase{name: "Phase 3: Row Reproduction (engine)"}

	eng, err := engine.New(engine.Request{Columns: columns})
	if err != nil {
		p.errorf("build engine: %v", err)
		return p
	}
	transformer := pipeline.NewTransformer(eng, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var got []domain.OutputEvent
	for i, d := range msgs {
		if d.err != nil {
			continue
		}
		data, err := bufr.EncodeJSON(d.msg)
		if err != nil {
			p.errorf("line %d: re-encode: %v", d.line, err)
			continue
		}
		out, err := transformer.Transform(context.Background(), domain.RawEvent{
			Key:    []byte(fmt.Sprintf("mock-%03d", i)),
			Value:  data,
			Offset: int64(i),
		})
		if err != nil {
			p.errorf("line %d: transform: %v", d.line, err)
			continue
		}
		got = append(got, out...)
	}

	if len(got) != len(expected) {
		p.errorf("row count: expected %d, got %d", len(expected), len(got))
	}
	for i := range min(len(got), len(expected)) {
		compareRows(p, i, expected[i], got[i])
	}
	return p
}

func compareRows(p *phase, i int, want mockRow, got domain.OutputEvent) {
	if want.Key != string(got.Key) {
		p.errorf("row %d: key: expected %q, got %q", i, want.Key, got.Key)
	}
	for k, v := range want.Headers {
		if got.Headers[k] != v {
			p.errorf("row %d: header %q: expected %q, got %q", i, k, v, got.Headers[k])
		}
	}
	var a, b any
	if err := json.Unmarshal(want.Value, &a); err != nil {
		p.errorf("row %d: expected value is not JSON: %v", i, err)
		return
	}
	if err := json.Unmarshal(got.Value, &b); err != nil {
		p.errorf("row %d: produced value is not JSON: %v", i, err)
		return
	}
	wa, _ := json.Marshal(a)
	gb, _ := json.Marshal(b)
	if !bytes.Equal(wa, gb) {
		p.errorf("row %d (%s): value mismatch:\n      expected %s\n      got      %s", i, want.Key, wa, gb)
	}
}

// ── Phase 4: Row Schema ──
// Validates value ranges and identifier formats of the expected rows.

func validateRowSchema(rows []mockRow) *phase {
	p := &phase{name: "Phase 4: Row Schema (values)"}
	for i := range rows {
		checkRow(p, i, &rows[i])
	}
	return p
}

func checkRow(p *phase, i int, r *mockRow) {
	pf := func(format string, args ...any) {
		p.errorf("row %d (key %s): "+format, append([]any{i, r.Key}, args...)...)
	}

	var v map[string]any
	if err := json.Unmarshal(r.Value, &v); err != nil {
		pf("value is not a JSON object: %v", err)
		return
	}

	if id, ok := v["station_id"].(string); ok {
		if _, err := wigos.Parse(id); err != nil {
			pf("station_id %q is not a WIGOS identifier", id)
		}
	}
	if s, ok := v["data_datetime"].(string); ok {
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			pf("data_datetime %q is not RFC 3339", s)
		}
	}
	if lat, ok := v["lat"].(float64); ok && (lat < -90 || lat > 90) {
		pf("lat %g out of range", lat)
	}
	if lon, ok := v["lon"].(float64); ok && (lon < -180 || lon > 180) {
		pf("lon %g out of range", lon)
	}
	for _, name := range []string{"t2m", "td2m"} {
		if k, ok := v[name].(float64); ok && (k < 150 || k > 350) {
			pf("%s %g K is implausible", name, k)
		}
	}
	if ws, ok := v["ws"].(float64); ok && ws < 0 {
		pf("ws %g is negative", ws)
	}

	if _, err := time.Parse(time.RFC3339, r.Headers["processed_at"]); err != nil {
		pf("processed_at header %q is not RFC 3339", r.Headers["processed_at"])
	}
	if r.Headers["columns"] == "" {
		pf("columns header is empty")
	}
}
