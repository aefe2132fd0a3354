package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-bufr/internal/domain"
	"github.com/couchcryptid/storm-data-bufr/internal/observability"
)

// Retry delays after a failed extract or load: doubled per failure, capped.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts one raw event into the output events it yields. A
// message can produce many rows or none at all.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) ([]domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline orchestrates the extract-transform-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once a decoded message has been processed end to
// end, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// batchStats summarises one cycle for logging.
type batchStats struct {
	messages int // transformed successfully
	failed   int // skipped and committed
	empty    int // transformed into zero rows
	rows     int
}

func (s batchStats) logAttrs() []any {
	return []any{"messages", s.messages, "failed", s.failed, "empty", s.empty, "rows", s.rows}
}

// retry is the extract/load backoff state of a running pipeline.
type retry struct {
	delay time.Duration
}

func (r *retry) reset() { r.delay = initialBackoff }

// wait sleeps for the current delay and doubles it. It returns false when ctx
// ends first.
func (r *retry) wait(ctx context.Context) bool {
	if ctx.Err() != nil || !sleepWithContext(ctx, r.delay) {
		return false
	}
	r.delay = min(r.delay*2, maxBackoff)
	return true
}

// Run executes the batch ETL loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	r := &retry{}
	r.reset()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, r) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, r *retry) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return r.wait(ctx)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	r.reset()

	stats, loaded := p.transformAndLoad(ctx, rawBatch)
	if !loaded {
		return r.wait(ctx)
	}

	elapsed := time.Since(start)
	p.logger.Debug("batch processed", append(stats.logAttrs(), "duration", elapsed)...)
	if stats.messages > 0 {
		p.metrics.BatchProcessingDuration.Observe(elapsed.Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad transforms each message in the batch, loads all resulting
// rows in one write, and then commits offsets. Messages that fail to
// transform are committed right away so they are not redelivered. loaded is
// false when the write failed and nothing but the failures was committed.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawEvent) (stats batchStats, loaded bool) {
	var outBatch []domain.OutputEvent
	successfulRaws := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		out, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"key", string(raw.Key),
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commitOffset(ctx, raw)
			stats.failed++
			continue
		}
		p.metrics.RowsPerMessage.Observe(float64(len(out)))
		if len(out) == 0 {
			stats.empty++
		}
		stats.messages++
		stats.rows += len(out)
		outBatch = append(outBatch, out...)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(outBatch) > 0 {
		if err := p.loader.LoadBatch(ctx, outBatch); err != nil {
			p.logger.Error("load batch failed", append(stats.logAttrs(), "error", err)...)
			return stats, false
		}
		p.metrics.MessagesProduced.Add(float64(len(outBatch)))
	}

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}
	return stats, true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
