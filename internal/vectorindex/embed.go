package vectorindex

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pdf-qa/internal/models"
)

// EmbedFunc turns one text into an embedding vector. It has the same shape as
// langchaingo's EmbedQuery and chromem-go's EmbeddingFunc.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

const DefaultConcurrency = 4

type options struct {
	concurrency int
	limiter     *rate.Limiter
}

type Option func(*options)

// WithConcurrency bounds the number of embedding calls in flight.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRateLimit makes every embedding call wait for a token from l.
func WithRateLimit(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

func buildOptions(opts []Option) options {
	o := options{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// EmbedAll embeds texts concurrently and returns the vectors in input order.
// It fails if any call fails, returns an empty vector, or returns a vector whose
// length differs from the first one.
func EmbedAll(ctx context.Context, texts []string, embed EmbedFunc, opts ...Option) ([]models.EmbeddingVector, error) {
	o := buildOptions(opts)
	vectors := make([]models.EmbeddingVector, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			if o.limiter != nil {
				if err := o.limiter.Wait(gctx); err != nil {
					return fmt.Errorf("%w: text %d: %w", models.ErrEmbedding, i, err)
				}
			}
			vec, err := embed(gctx, text)
			if err != nil {
				return fmt.Errorf("%w: text %d: %w", models.ErrEmbedding, i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}
	log.Debug().Int("vectors", len(vectors)).Int("concurrency", o.concurrency).Msg("Embedded texts")
	return vectors, nil
}

func checkDimensions(vectors []models.EmbeddingVector) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: text %d: empty vector", models.ErrEmbedding, i)
		}
		if len(v) != dim {
			return fmt.Errorf("%w: text %d: vector length %d, expected %d", models.ErrEmbedding, i, len(v), dim)
		}
		if err := CheckFinite(v); err != nil {
			return fmt.Errorf("text %d: %w", i, err)
		}
	}
	return nil
}

// CheckFinite rejects vectors holding NaN or infinite components.
func CheckFinite(v []float32) error {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", models.ErrEmbedding, i, x)
		}
	}
	return nil
}
