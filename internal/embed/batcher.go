// Package embed turns catalog rows into fixed-dimension vectors, one model
// call per batch.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/firebase/genkit/go/ai"

	"github.com/aakashium/shopassist/internal/catalog"
)

// ErrEmbedding indicates the embedding model call failed or returned
// vectors of unexpected shape. It aborts only the current batch; the caller
// decides whether to retry or skip.
var ErrEmbedding = errors.New("embedding failed")

// Metadata keys stored alongside each vector. These are the display fields
// needed to render an answer without a second catalog lookup.
const (
	MetaProductName  = "ProductName"
	MetaProductBrand = "ProductBrand"
	MetaGender       = "Gender"
	MetaPrice        = "Price"
	MetaPrimaryColor = "PrimaryColor"
	MetaDescription  = "Description"
)

// Batch is one embedded chunk of the catalog, index-aligned: IDs[i],
// Vectors[i] and Metadata[i] describe the same product.
type Batch struct {
	IDs      []int64
	Vectors  [][]float32
	Metadata []map[string]string
}

// Batcher splits catalog rows into fixed-size chunks and embeds each chunk
// with a single model call.
type Batcher struct {
	embedder  ai.Embedder
	batchSize int
	dimension int
	logger    *slog.Logger
}

// New creates a Batcher. batchSize and dimension must be positive; the
// dimension must match the vector index's configured width.
func New(embedder ai.Embedder, batchSize, dimension int, logger *slog.Logger) (*Batcher, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if dimension < 1 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{
		embedder:  embedder,
		batchSize: batchSize,
		dimension: dimension,
		logger:    logger,
	}, nil
}

// CanonicalText renders the row text that gets embedded. The field order is
// fixed: description, name, brand, gender, price, color. Changing it
// invalidates comparability with previously stored vectors and forces a
// full re-sync.
func CanonicalText(p catalog.Product) string {
	return fmt.Sprintf("%s %s %s %s %s %s",
		p.Description, p.Name, p.Brand, p.Gender,
		strconv.FormatFloat(p.Price, 'f', -1, 64), p.Color)
}

// Split chunks products into batches of the configured size. The last batch
// may be short. Batches are independent: each one embeds and upserts on its
// own, so a failure in one never touches the others.
func (b *Batcher) Split(products []catalog.Product) [][]catalog.Product {
	if len(products) == 0 {
		return nil
	}
	batches := make([][]catalog.Product, 0, (len(products)+b.batchSize-1)/b.batchSize)
	for start := 0; start < len(products); start += b.batchSize {
		end := min(start+b.batchSize, len(products))
		batches = append(batches, products[start:end])
	}
	return batches
}

// EmbedBatch embeds one batch with a single model call and returns the
// index-aligned ids, vectors and metadata. A mid-batch failure is not
// resumable: retry the whole batch.
func (b *Batcher) EmbedBatch(ctx context.Context, products []catalog.Product) (Batch, error) {
	if len(products) == 0 {
		return Batch{}, nil
	}

	docs := make([]*ai.Document, len(products))
	for i, p := range products {
		docs[i] = ai.DocumentFromText(CanonicalText(p), nil)
	}

	resp, err := b.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(resp.Embeddings) != len(products) {
		return Batch{}, fmt.Errorf("%w: got %d embeddings for %d rows",
			ErrEmbedding, len(resp.Embeddings), len(products))
	}

	out := Batch{
		IDs:      make([]int64, len(products)),
		Vectors:  make([][]float32, len(products)),
		Metadata: make([]map[string]string, len(products)),
	}
	for i, p := range products {
		vec := resp.Embeddings[i].Embedding
		if len(vec) != b.dimension {
			return Batch{}, fmt.Errorf("%w: product %d vector has dimension %d, want %d",
				ErrEmbedding, p.ID, len(vec), b.dimension)
		}
		out.IDs[i] = p.ID
		out.Vectors[i] = vec
		out.Metadata[i] = map[string]string{
			MetaProductName:  p.Name,
			MetaProductBrand: p.Brand,
			MetaGender:       p.Gender,
			MetaPrice:        strconv.FormatFloat(p.Price, 'f', -1, 64),
			MetaPrimaryColor: p.Color,
			MetaDescription:  p.Description,
		}
	}

	b.logger.Debug("embedded batch", "rows", len(products))
	return out, nil
}
