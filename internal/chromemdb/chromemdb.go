// Package chromemdb keeps chunk embeddings in an in-memory chromem-go
// collection and answers nearest-neighbor queries against it.
package chromemdb

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdf-qa/internal/helper"
	"pdf-qa/internal/models"
	"pdf-qa/internal/vectorindex"
)

const collectionName = "chunks"

type stored struct {
	chunk  models.Chunk
	vector models.EmbeddingVector
}

// Store is the chromem-go counterpart of vectorindex.Index. Scores are
// recomputed from the stored vectors and ranked with the same tie-break so both
// backends agree on scores and ordering.
type Store struct {
	collection  *chromem.Collection
	byID        map[string]stored
	order       []string
	dim         int
	concurrency int
}

// Build embeds the chunks with vectorindex.EmbedAll and adds them to a fresh
// collection. Zero-magnitude vectors are rejected because chromem normalizes
// every stored vector.
func Build(ctx context.Context, chunks []models.Chunk, embed vectorindex.EmbedFunc, opts ...vectorindex.Option) (*Store, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := vectorindex.EmbedAll(ctx, texts, embed, opts...)
	if err != nil {
		return nil, err
	}
	return New(ctx, chunks, vectors)
}

// New stores precomputed vectors. vectors[i] belongs to chunks[i].
func New(ctx context.Context, chunks []models.Chunk, vectors []models.EmbeddingVector) (*Store, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", models.ErrEmbedding, len(chunks), len(vectors))
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	s := &Store{
		collection:  collection,
		byID:        make(map[string]stored, len(chunks)),
		order:       make([]string, 0, len(chunks)),
		concurrency: vectorindex.DefaultConcurrency,
	}
	if len(chunks) == 0 {
		return s, nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) == 0 || len(vectors[i]) != len(vectors[0]) {
			return nil, fmt.Errorf("%w: chunk %d: vector length %d, expected %d", models.ErrEmbedding, i, len(vectors[i]), len(vectors[0]))
		}
		if err := vectorindex.CheckFinite(vectors[i]); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		if isZero(vectors[i]) {
			return nil, fmt.Errorf("%w: chunk %d: zero-magnitude vector", models.ErrEmbedding, i)
		}
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		s.byID[id] = stored{chunk: c, vector: vectors[i]}
		s.order = append(s.order, id)
		docs[i] = chromem.Document{
			ID:        id,
			Content:   c.Content,
			Metadata:  models.CopyMetadata(c.Metadata),
			Embedding: vectors[i],
		}
	}
	if err := collection.AddDocuments(ctx, docs, s.concurrency); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}
	s.dim = len(vectors[0])

	log.Debug().Int("chunks", collection.Count()).Int("dimension", s.dim).Msg("Built chromem collection")
	return s, nil
}

func (s *Store) Len() int { return s.collection.Count() }

func (s *Store) Dimension() int { return s.dim }

// Query embeds text and returns the k most similar chunks.
func (s *Store) Query(ctx context.Context, text string, k int, embed vectorindex.EmbedFunc) (models.QueryResult, error) {
	if err := s.check(k); err != nil {
		return nil, err
	}
	vec, err := embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", models.ErrEmbedding, err)
	}
	return s.Search(ctx, vec, k)
}

// Search returns the k chunks closest to vec. A zero-magnitude query scores
// every chunk 0.
func (s *Store) Search(ctx context.Context, vec []float32, k int) (models.QueryResult, error) {
	if err := s.check(k); err != nil {
		return nil, err
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: query vector length %d, expected %d", models.ErrEmbedding, len(vec), s.dim)
	}

	if err := vectorindex.CheckFinite(vec); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	if isZero(vec) {
		result := make(models.QueryResult, 0, len(s.order))
		for _, id := range s.order {
			result = append(result, models.ScoredChunk{Chunk: s.byID[id].chunk})
		}
		return vectorindex.Rank(result, k), nil
	}

	// Ask for every document so equal scores can be re-ranked deterministically.
	found, err := s.collection.QueryEmbedding(ctx, vec, s.collection.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	hits := make(map[string]bool, len(found))
	for _, r := range found {
		hits[r.ID] = true
	}
	// chromem scores in float32 against normalized copies, so rescore in build
	// order from the stored vectors.
	result := make(models.QueryResult, 0, len(found))
	for _, id := range s.order {
		if !hits[id] {
			continue
		}
		e := s.byID[id]
		result = append(result, models.ScoredChunk{Chunk: e.chunk, Score: vectorindex.Cosine(vec, e.vector)})
	}
	return vectorindex.Rank(result, k), nil
}

func (s *Store) check(k int) error {
	if s.collection.Count() == 0 {
		return models.ErrEmptyIndex
	}
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidConfig, k)
	}
	return nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
