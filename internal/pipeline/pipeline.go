// Package pipeline runs one question against one document: load, split, index,
// retrieve, answer and parse.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"pdf-qa/internal/chromemdb"
	"pdf-qa/internal/chunker"
	"pdf-qa/internal/config"
	"pdf-qa/internal/helper"
	"pdf-qa/internal/loader"
	"pdf-qa/internal/models"
	"pdf-qa/internal/rag"
	"pdf-qa/internal/vectorindex"
)

// Stage names reported in models.StageError.
const (
	StageLoad   = "load"
	StageSplit  = "split"
	StageBuild  = "build"
	StageQuery  = "query"
	StageAnswer = "answer"
)

// Retriever is implemented by vectorindex.Index and chromemdb.Store.
type Retriever interface {
	Query(ctx context.Context, text string, k int, embed vectorindex.EmbedFunc) (models.QueryResult, error)
	Len() int
}

type Orchestrator struct {
	cfg    *config.Config
	loader *loader.Loader
	embed  vectorindex.EmbedFunc
	llm    rag.LLMCall
}

// New wires the stages. embed and llm are retried with the policy in cfg.Retry.
func New(cfg *config.Config, ld *loader.Loader, embed vectorindex.EmbedFunc, llm rag.LLMCall) *Orchestrator {
	o := &Orchestrator{cfg: cfg, loader: ld}
	o.embed = func(ctx context.Context, text string) ([]float32, error) {
		return retrying(ctx, cfg.Retry, "embed", func() ([]float32, error) { return embed(ctx, text) })
	}
	o.llm = func(ctx context.Context, prompt string) (string, error) {
		return retrying(ctx, cfg.Retry, "complete", func() (string, error) { return llm(ctx, prompt) })
	}
	return o
}

// Run answers query against src. It stops at the first failing stage and
// returns a *models.StageError wrapping that stage's error. A reply that is not
// JSON is not an error: the response then carries a ParseFailure.
func (o *Orchestrator) Run(ctx context.Context, src loader.Source, query string) (*models.PromptResponse, error) {
	runID, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("run_id", runID).Str("source", src.String()).Logger()

	if err := ctx.Err(); err != nil {
		return nil, &models.StageError{Stage: StageLoad, Err: err}
	}
	docs, err := o.loader.Load(ctx, src)
	if err != nil {
		return nil, &models.StageError{Stage: StageLoad, Err: err}
	}
	logger.Info().Int("documents", len(docs)).Msg("Loaded document")

	if err := ctx.Err(); err != nil {
		return nil, &models.StageError{Stage: StageSplit, Err: err}
	}
	chunks, err := chunker.Split(docs, o.cfg.RAG.ChunkSize, o.cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, &models.StageError{Stage: StageSplit, Err: err}
	}
	logger.Info().Int("chunks", len(chunks)).Msg("Split document")

	if err := ctx.Err(); err != nil {
		return nil, &models.StageError{Stage: StageBuild, Err: err}
	}
	index, err := o.build(ctx, chunks)
	if err != nil {
		return nil, &models.StageError{Stage: StageBuild, Err: err}
	}
	logger.Info().Int("entries", index.Len()).Str("store", o.cfg.RAG.VectorStore).Msg("Built index")

	if err := ctx.Err(); err != nil {
		return nil, &models.StageError{Stage: StageQuery, Err: err}
	}
	retrieved, err := index.Query(ctx, query, o.cfg.RAG.TopK, o.embed)
	if err != nil {
		return nil, &models.StageError{Stage: StageQuery, Err: err}
	}
	logger.Info().Int("retrieved", len(retrieved)).Msg("Retrieved chunks")

	if err := ctx.Err(); err != nil {
		return nil, &models.StageError{Stage: StageAnswer, Err: err}
	}
	content, err := rag.Answer(ctx, query, retrieved.Chunks(), o.llm)
	if err != nil {
		return nil, &models.StageError{Stage: StageAnswer, Err: err}
	}

	resp := &models.PromptResponse{
		RunID:     runID,
		Query:     query,
		Source:    src.String(),
		Content:   content,
		Retrieved: retrieved,
	}
	resp.Parsed, resp.ParseFailure = rag.ParseJSON(content)
	if resp.ParseFailure != nil {
		logger.Warn().Str("reason", resp.ParseFailure.Reason).Msg("Answer is not a JSON object")
	}
	return resp, nil
}

func (o *Orchestrator) build(ctx context.Context, chunks []models.Chunk) (Retriever, error) {
	opts := []vectorindex.Option{vectorindex.WithConcurrency(o.cfg.RAG.EmbedConcurrency)}
	if r := o.cfg.RAG.EmbedRateLimit; r > 0 {
		opts = append(opts, vectorindex.WithRateLimit(rate.NewLimiter(rate.Limit(r), 1)))
	}
	if o.cfg.RAG.VectorStore == config.StoreChromem {
		return chromemdb.Build(ctx, chunks, o.embed, opts...)
	}
	return vectorindex.Build(ctx, chunks, o.embed, opts...)
}

// retrying runs fn until it succeeds, the attempts in cfg are used up, or ctx
// is done. Context errors are not retried.
func retrying[T any](ctx context.Context, cfg config.RetryConfig, name string, fn func() (T, error)) (T, error) {
	attempts := max(cfg.MaxAttempts, 1)
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(cfg.InitialInterval),
		backoff.WithMaxInterval(cfg.MaxInterval),
	), uint64(attempts-1)), ctx)

	op := func() (T, error) {
		v, err := fn()
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("call", name).Dur("retry_in", wait).Msg("Call failed, retrying")
	}
	return backoff.RetryNotifyWithData[T](op, policy, notify)
}
