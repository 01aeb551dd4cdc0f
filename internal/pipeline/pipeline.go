// Package pipeline runs the catalog sync: extract rows, embed them in
// batches, upsert vectors and metadata into the index.
//
// Batches are independent, retryable tasks dispatched to a bounded worker
// pool. A failed batch never cancels or corrupts its siblings, and upserts
// are idempotent by product id, so re-running the whole pipeline after a
// partial failure converges to the same index state (at-least-once safe).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aakashium/shopassist/internal/catalog"
	"github.com/aakashium/shopassist/internal/embed"
)

// Extractor reads the full product catalog.
type Extractor interface {
	FetchAll(ctx context.Context) ([]catalog.Product, error)
}

// Batcher splits rows into chunks and embeds one chunk per model call.
type Batcher interface {
	Split(products []catalog.Product) [][]catalog.Product
	EmbedBatch(ctx context.Context, products []catalog.Product) (embed.Batch, error)
}

// Writer is the vector index surface the pipeline needs.
type Writer interface {
	Ensure(ctx context.Context) error
	Upsert(ctx context.Context, ids []int64, vectors [][]float32, metadata []map[string]string) error
}

// Report summarizes one pipeline run.
type Report struct {
	Products      int
	Batches       int
	Upserted      int
	FailedBatches int
}

// Pipeline wires the extractor, batcher and writer together.
type Pipeline struct {
	extractor Extractor
	batcher   Batcher
	writer    Writer
	workers   int
	logger    *slog.Logger
}

// New creates a Pipeline. workers bounds how many batches are in flight at
// once; values below 1 are clamped to 1.
func New(extractor Extractor, batcher Batcher, writer Writer, workers int, logger *slog.Logger) (*Pipeline, error) {
	if extractor == nil || batcher == nil || writer == nil {
		return nil, errors.New("extractor, batcher and writer are required")
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		batcher:   batcher,
		writer:    writer,
		workers:   workers,
		logger:    logger,
	}, nil
}

// Run executes one full sync. It ensures the index exists and is ready,
// fetches every catalog row, then embeds and upserts batches concurrently.
//
// Per-batch failures are collected, not propagated between batches: the
// returned Report counts them and the error (if any) is the join of every
// batch failure. A non-nil error with Upserted > 0 means a partial sync;
// re-running is safe.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	if err := p.writer.Ensure(ctx); err != nil {
		return Report{}, fmt.Errorf("ensuring index: %w", err)
	}

	products, err := p.extractor.FetchAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("fetching catalog: %w", err)
	}

	batches := p.batcher.Split(products)
	report := Report{Products: len(products), Batches: len(batches)}
	if len(batches) == 0 {
		p.logger.Info("catalog is empty, nothing to sync")
		return report, nil
	}

	var (
		mu        sync.Mutex
		upserted  int
		batchErrs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, batch := range batches {
		g.Go(func() error {
			if err := p.syncBatch(gctx, batch); err != nil {
				p.logger.Warn("batch failed", "batch", i, "rows", len(batch), "error", err)
				mu.Lock()
				batchErrs = append(batchErrs, fmt.Errorf("batch %d: %w", i, err))
				mu.Unlock()
				// Swallow the error so sibling batches keep running.
				return nil
			}
			mu.Lock()
			upserted += len(batch)
			mu.Unlock()
			return nil
		})
	}
	// Tasks only return nil; Wait is for completion, not error collection.
	_ = g.Wait()

	report.Upserted = upserted
	report.FailedBatches = len(batchErrs)

	p.logger.Info("catalog sync finished",
		"products", report.Products,
		"batches", report.Batches,
		"upserted", report.Upserted,
		"failed_batches", report.FailedBatches,
	)

	return report, errors.Join(batchErrs...)
}

// syncBatch embeds one batch and writes it to the index. The batch is the
// retry unit: on failure the caller re-runs it whole.
func (p *Pipeline) syncBatch(ctx context.Context, batch []catalog.Product) error {
	embedded, err := p.batcher.EmbedBatch(ctx, batch)
	if err != nil {
		return err
	}
	return p.writer.Upsert(ctx, embedded.IDs, embedded.Vectors, embedded.Metadata)
}
