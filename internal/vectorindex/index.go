// Package vectorindex is an in-memory, exact nearest-neighbor index over chunk
// embeddings using cosine similarity.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"pdf-qa/internal/models"
)

type entry struct {
	chunk  models.Chunk
	vector models.EmbeddingVector
	norm   float64
}

// Index is immutable once built.
type Index struct {
	entries []entry
	dim     int
}

// Build embeds every chunk and indexes the results in chunk order. No index is
// returned if any embedding fails.
func Build(ctx context.Context, chunks []models.Chunk, embed EmbedFunc, opts ...Option) (*Index, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := EmbedAll(ctx, texts, embed, opts...)
	if err != nil {
		return nil, err
	}
	return New(chunks, vectors)
}

// New indexes precomputed vectors. vectors[i] belongs to chunks[i].
func New(chunks []models.Chunk, vectors []models.EmbeddingVector) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", models.ErrEmbedding, len(chunks), len(vectors))
	}
	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}
	ix := &Index{entries: make([]entry, len(chunks))}
	for i := range chunks {
		ix.entries[i] = entry{chunk: chunks[i], vector: vectors[i], norm: magnitude(vectors[i])}
	}
	if len(vectors) > 0 {
		ix.dim = len(vectors[0])
	}
	log.Debug().Int("chunks", len(chunks)).Int("dimension", ix.dim).Msg("Built vector index")
	return ix, nil
}

func (ix *Index) Len() int { return len(ix.entries) }

func (ix *Index) Dimension() int { return ix.dim }

// Query embeds text and returns the k most similar chunks.
func (ix *Index) Query(ctx context.Context, text string, k int, embed EmbedFunc) (models.QueryResult, error) {
	if err := ix.check(k); err != nil {
		return nil, err
	}
	vec, err := embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", models.ErrEmbedding, err)
	}
	return ix.Search(vec, k)
}

// Search ranks every stored vector against vec and keeps the top k. Ties are
// broken by sequence index, then source, then build order.
func (ix *Index) Search(vec []float32, k int) (models.QueryResult, error) {
	if err := ix.check(k); err != nil {
		return nil, err
	}
	if len(vec) != ix.dim {
		return nil, fmt.Errorf("%w: query vector length %d, expected %d", models.ErrEmbedding, len(vec), ix.dim)
	}
	if err := CheckFinite(vec); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	qnorm := magnitude(vec)
	result := make(models.QueryResult, len(ix.entries))
	for i, e := range ix.entries {
		result[i] = models.ScoredChunk{Chunk: e.chunk, Score: cosine(vec, e.vector, qnorm, e.norm)}
	}
	return Rank(result, k), nil
}

func (ix *Index) check(k int) error {
	if len(ix.entries) == 0 {
		return models.ErrEmptyIndex
	}
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidConfig, k)
	}
	return nil
}

// Rank sorts result in place by descending score with the deterministic
// tie-break and truncates it to k entries.
func Rank(result models.QueryResult, k int) models.QueryResult {
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.SequenceIndex != b.Chunk.SequenceIndex {
			return a.Chunk.SequenceIndex < b.Chunk.SequenceIndex
		}
		return a.Chunk.Source() < b.Chunk.Source()
	})
	if k < len(result) {
		result = result[:k]
	}
	return result
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero
// magnitude or the result is not a number.
func Cosine(a, b []float32) float64 {
	return cosine(a, b, magnitude(a), magnitude(b))
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	n := min(len(a), len(b))
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	score := dot / (na * nb)
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(-1, math.Min(1, score))
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
