// Command bufr2rows flattens a file of decoded BUFR messages into a CSV
// table of observations.
//
// Usage:
//
//	go run ./cmd/bufr2rows \
//	  -in data/mock/bufr_240426.jsonl.zst \
//	  -columns WSI,data_datetime,lat,lon,t2m \
//	  -filters 'latitude=50..54;count=..10'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-data-bufr/internal/bufr"
	"github.com/couchcryptid/storm-data-bufr/internal/config"
	"github.com/couchcryptid/storm-data-bufr/internal/engine"
	"github.com/couchcryptid/storm-data-bufr/internal/filter"
	"github.com/couchcryptid/storm-data-bufr/internal/observability"
	"github.com/couchcryptid/storm-data-bufr/internal/param"
	"github.com/couchcryptid/storm-data-bufr/internal/table"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "bufr2rows: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("bufr2rows", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "-", "decoded message file (JSONL, .zst accepted); - reads stdin")
	out := fs.String("out", "-", "CSV output path; - writes stdout")
	columns := fs.String("columns", config.DefaultColumns, "comma-separated output columns; * selects every key")
	required := fs.String("required", "", "comma-separated columns a row must have")
	filters := fs.String("filters", "", "semicolon-separated name=spec filters")
	params := fs.String("params", "", "YAML file of additional parameter definitions")
	ranked := fs.Bool("ranked", false, "key observations by rank-qualified names")
	wide := fs.Bool("wide", false, "use the union of all row columns instead of the first row's")
	raise := fs.Bool("raise-on-missing", false, "fail when a computed parameter has no inputs")
	logLevel := fs.String("log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := observability.NewLoggerTo(stderr, *logLevel, "text")

	specs, err := filter.ParseFilters(*filters, ";")
	if err != nil {
		return fmt.Errorf("parse -filters: %w", err)
	}
	cols := config.SplitList(*columns)
	if len(cols) == 1 && cols[0] == "*" {
		cols = nil
	}

	registry := param.NewDefaultRegistry()
	if *params != "" {
		if err := registry.LoadYAMLFile(*params); err != nil {
			return err
		}
	}

	eng, err := engine.New(engine.Request{
		Columns:        cols,
		Required:       config.SplitList(*required),
		Filters:        specs,
		RankedKeys:     *ranked,
		RaiseOnMissing: *raise,
		WideSchema:     *wide,
	}, engine.WithRegistry(registry), engine.WithLogger(logger))
	if err != nil {
		return err
	}

	src := io.NopCloser(stdin)
	if *in != "-" {
		if src, err = bufr.OpenFile(*in); err != nil {
			return err
		}
	}
	defer src.Close()

	t, err := eng.ReadAll(ctx, bufr.ReadMessages(src))
	if err != nil {
		return err
	}
	stats := eng.ShapeCache().Stats()
	logger.Info("table built", "rows", len(t.Rows), "columns", len(t.Columns),
		"shapes", stats.Shapes, "cache_hits", stats.Hits)

	if *out == "-" {
		return table.WriteCSV(stdout, t)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	if err := table.WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
