package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aakashium/shopassist/internal/catalog"
	"github.com/aakashium/shopassist/internal/embed"
	"github.com/aakashium/shopassist/internal/log"
)

type fakeExtractor struct {
	products []catalog.Product
	err      error
}

func (f *fakeExtractor) FetchAll(_ context.Context) ([]catalog.Product, error) {
	return f.products, f.err
}

// fakeBatcher splits into fixed-size chunks and fakes one vector per row.
// failIDs marks products whose batch fails at embed time.
type fakeBatcher struct {
	batchSize int
	failIDs   map[int64]bool
}

func (f *fakeBatcher) Split(products []catalog.Product) [][]catalog.Product {
	var batches [][]catalog.Product
	for start := 0; start < len(products); start += f.batchSize {
		end := min(start+f.batchSize, len(products))
		batches = append(batches, products[start:end])
	}
	return batches
}

func (f *fakeBatcher) EmbedBatch(_ context.Context, products []catalog.Product) (embed.Batch, error) {
	b := embed.Batch{}
	for _, p := range products {
		if f.failIDs[p.ID] {
			return embed.Batch{}, fmt.Errorf("embedding product %d: %w", p.ID, embed.ErrEmbedding)
		}
		b.IDs = append(b.IDs, p.ID)
		b.Vectors = append(b.Vectors, []float32{float32(p.ID)})
		b.Metadata = append(b.Metadata, map[string]string{embed.MetaProductName: p.Name})
	}
	return b, nil
}

// fakeWriter records upserts keyed by product id, modeling index idempotence.
type fakeWriter struct {
	mu          sync.Mutex
	ensured     int
	ensureErr   error
	upsertErr   error
	points      map[int64]map[string]string
	upsertCalls int
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{points: make(map[int64]map[string]string)}
}

func (f *fakeWriter) Ensure(_ context.Context) error {
	f.ensured++
	return f.ensureErr
}

func (f *fakeWriter) Upsert(_ context.Context, ids []int64, _ [][]float32, metadata []map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for i, id := range ids {
		f.points[id] = metadata[i]
	}
	return nil
}

func products(n int) []catalog.Product {
	out := make([]catalog.Product, n)
	for i := range out {
		out[i] = catalog.Product{ID: int64(i + 1), Name: fmt.Sprintf("Product %d", i+1)}
	}
	return out
}

func newPipeline(t *testing.T, ext Extractor, b Batcher, w Writer, workers int) *Pipeline {
	t.Helper()
	p, err := New(ext, b, w, workers, log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestRunSyncsWholeCatalog(t *testing.T) {
	writer := newFakeWriter()
	p := newPipeline(t, &fakeExtractor{products: products(25)}, &fakeBatcher{batchSize: 10}, writer, 4)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Products != 25 || report.Batches != 3 || report.Upserted != 25 || report.FailedBatches != 0 {
		t.Errorf("report = %+v, want 25 products in 3 batches, all upserted", report)
	}
	if writer.ensured != 1 {
		t.Errorf("Ensure called %d times, want 1", writer.ensured)
	}
	if len(writer.points) != 25 {
		t.Errorf("index holds %d points, want 25", len(writer.points))
	}
}

func TestRunEmptyCatalog(t *testing.T) {
	writer := newFakeWriter()
	p := newPipeline(t, &fakeExtractor{}, &fakeBatcher{batchSize: 10}, writer, 4)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Products != 0 || report.Batches != 0 || report.Upserted != 0 {
		t.Errorf("report = %+v, want all zero", report)
	}
	if writer.upsertCalls != 0 {
		t.Error("empty catalog must not upsert")
	}
}

func TestRunFailedBatchDoesNotStopSiblings(t *testing.T) {
	writer := newFakeWriter()
	// Product 15 sits in the second of three 10-row batches.
	batcher := &fakeBatcher{batchSize: 10, failIDs: map[int64]bool{15: true}}
	p := newPipeline(t, &fakeExtractor{products: products(25)}, batcher, writer, 2)

	report, err := p.Run(context.Background())
	if !errors.Is(err, embed.ErrEmbedding) {
		t.Fatalf("Run() error = %v, want ErrEmbedding in join", err)
	}

	if report.FailedBatches != 1 {
		t.Errorf("FailedBatches = %d, want 1", report.FailedBatches)
	}
	if report.Upserted != 15 {
		t.Errorf("Upserted = %d, want 15 (the two healthy batches)", report.Upserted)
	}
	// Rows from the failed batch never land, whole rows from others do.
	if _, ok := writer.points[15]; ok {
		t.Error("row from failed batch reached the index")
	}
	if _, ok := writer.points[5]; !ok {
		t.Error("row from healthy sibling batch missing from index")
	}
}

func TestRunRerunAfterPartialFailureConverges(t *testing.T) {
	writer := newFakeWriter()
	extractor := &fakeExtractor{products: products(25)}
	failing := &fakeBatcher{batchSize: 10, failIDs: map[int64]bool{15: true}}

	p := newPipeline(t, extractor, failing, writer, 2)
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("first run should report the failed batch")
	}

	// Second run with the fault cleared, same writer: re-upserts replace by
	// id instead of duplicating.
	healthy := &fakeBatcher{batchSize: 10}
	p = newPipeline(t, extractor, healthy, writer, 2)
	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if report.Upserted != 25 {
		t.Errorf("second run upserted %d, want 25", report.Upserted)
	}
	if len(writer.points) != 25 {
		t.Errorf("index holds %d points after re-run, want exactly 25", len(writer.points))
	}
}

func TestRunEnsureFailureAborts(t *testing.T) {
	writer := newFakeWriter()
	writer.ensureErr = errors.New("index down")
	p := newPipeline(t, &fakeExtractor{products: products(5)}, &fakeBatcher{batchSize: 10}, writer, 2)

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("Run() must fail when the index cannot be ensured")
	}
	if writer.upsertCalls != 0 {
		t.Error("no upsert may happen before the index is ready")
	}
}

func TestRunExtractFailureAborts(t *testing.T) {
	writer := newFakeWriter()
	ext := &fakeExtractor{err: fmt.Errorf("db: %w", catalog.ErrUnreachable)}
	p := newPipeline(t, ext, &fakeBatcher{batchSize: 10}, writer, 2)

	_, err := p.Run(context.Background())
	if !errors.Is(err, catalog.ErrUnreachable) {
		t.Errorf("Run() error = %v, want ErrUnreachable", err)
	}
	if writer.upsertCalls != 0 {
		t.Error("no upsert may happen when extraction fails")
	}
}

func TestRunUpsertFailureCountsAllBatches(t *testing.T) {
	writer := newFakeWriter()
	writer.upsertErr = errors.New("write rejected")
	p := newPipeline(t, &fakeExtractor{products: products(25)}, &fakeBatcher{batchSize: 10}, writer, 2)

	report, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run() should join every batch failure")
	}
	if report.FailedBatches != 3 || report.Upserted != 0 {
		t.Errorf("report = %+v, want 3 failed batches and 0 upserted", report)
	}
}

func TestNewRejectsNilDependencies(t *testing.T) {
	if _, err := New(nil, &fakeBatcher{batchSize: 1}, newFakeWriter(), 1, log.NewNop()); err == nil {
		t.Error("New() accepted a nil extractor")
	}
	if _, err := New(&fakeExtractor{}, nil, newFakeWriter(), 1, log.NewNop()); err == nil {
		t.Error("New() accepted a nil batcher")
	}
	if _, err := New(&fakeExtractor{}, &fakeBatcher{batchSize: 1}, nil, 1, log.NewNop()); err == nil {
		t.Error("New() accepted a nil writer")
	}
}
