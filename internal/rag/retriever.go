// Package rag retrieves product context for a user query.
//
// A query is embedded, searched against the vector index, and the best
// match is rendered into a fixed-format context block the prompt composer
// can splice into the model prompt. "Nothing relevant" is a normal outcome
// signalled by NoMatchContext, never an error: the assistant must degrade
// to an honest no-info answer instead of fabricating product details.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/aakashium/shopassist/internal/embed"
	"github.com/aakashium/shopassist/internal/index"
)

// NoMatchContext is the sentinel context block returned when no product in
// the index is relevant to the query.
const NoMatchContext = "No relevant search"

// notAvailable is the placeholder for a missing metadata field.
const notAvailable = "Not Available"

// Match is one retrieved product with its similarity score.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Searcher is the vector index surface the retriever needs.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int, minScore float32) ([]index.Hit, error)
}

// Retriever embeds queries and searches the product index.
type Retriever struct {
	embedder ai.Embedder
	searcher Searcher
	topK     int
	minScore float32
	logger   *slog.Logger
}

// New creates a Retriever. topK is the default result count used by
// Context; Retrieve accepts an explicit k. minScore <= 0 disables the
// similarity floor.
func New(embedder ai.Embedder, searcher Searcher, topK int, minScore float32, logger *slog.Logger) (*Retriever, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if topK < 1 {
		topK = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		searcher: searcher,
		topK:     topK,
		minScore: minScore,
		logger:   logger,
	}, nil
}

// Retrieve returns up to k matches for the query, ranked by similarity.
// An empty slice means nothing relevant; it is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]Match, error) {
	if k < 1 {
		k = r.topK
	}

	resp, err := r.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(query, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", embed.ErrEmbedding, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned for query", embed.ErrEmbedding)
	}

	hits, err := r.searcher.Search(ctx, resp.Embeddings[0].Embedding, k, r.minScore)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = Match{ID: h.ID, Score: h.Score, Metadata: h.Metadata}
	}

	r.logger.Debug("retrieved matches", "query_length", len(query), "k", k, "matches", len(matches))
	return matches, nil
}

// Context retrieves the single best match for the query and renders it as
// a context block. It returns NoMatchContext when nothing clears the
// similarity floor.
func (r *Retriever) Context(ctx context.Context, query string) (string, error) {
	matches, err := r.Retrieve(ctx, query, 1)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return NoMatchContext, nil
	}
	return RenderContext(matches[0]), nil
}

// RenderContext formats a match's display fields and description into the
// context block supplied to the model. Missing fields render as
// "Not Available" rather than being dropped, keeping the block shape fixed.
func RenderContext(m Match) string {
	var b strings.Builder
	b.WriteString("Product Name: " + field(m.Metadata, embed.MetaProductName) + "\n")
	b.WriteString("Brand: " + field(m.Metadata, embed.MetaProductBrand) + "\n")
	b.WriteString("Price: " + field(m.Metadata, embed.MetaPrice) + "\n")
	b.WriteString("Color: " + field(m.Metadata, embed.MetaPrimaryColor) + "\n")
	b.WriteString("Description: " + field(m.Metadata, embed.MetaDescription))
	return b.String()
}

func field(meta map[string]string, key string) string {
	if v, ok := meta[key]; ok && v != "" {
		return v
	}
	return notAvailable
}
