// Package rag turns retrieved chunks and a question into a single LLM prompt
// and interprets the reply.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-qa/internal/models"
)

// LLMCall sends one prompt and returns the raw completion.
type LLMCall func(ctx context.Context, prompt string) (string, error)

var (
	thinkTag  = regexp.MustCompile(models.ThinkTag)
	jsonFence = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*\n(.*?)\\s*```$")
)

// BuildPrompt lays out the chunks as context in the order given, followed by
// the answer instruction and the question.
func BuildPrompt(query string, chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return fmt.Sprintf(models.AnswerPromptTemplate, strings.Join(parts, models.ContextSeparator), models.AnswerInstruction, query)
}

// Answer calls the model exactly once and returns its reply unmodified.
func Answer(ctx context.Context, query string, chunks []models.Chunk, call LLMCall) (string, error) {
	prompt := BuildPrompt(query, chunks)
	log.Debug().Int("chunks", len(chunks)).Int("prompt_len", len(prompt)).Msg("Asking model")

	res, err := call(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrExternalCall, err)
	}
	return res, nil
}

// ParseJSON decodes response as a JSON object. Reasoning blocks and a
// surrounding code fence are ignored. It never returns both values nil.
func ParseJSON(response string) (map[string]any, *models.ParseFailure) {
	text := strings.TrimSpace(thinkTag.ReplaceAllString(response, ""))
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, &models.ParseFailure{Text: response, Reason: err.Error()}
	}
	if out == nil {
		return nil, &models.ParseFailure{Text: response, Reason: "null"}
	}
	return out, nil
}

// FormatSources lists where each retrieved chunk came from, best match first.
func FormatSources(result models.QueryResult) string {
	var b strings.Builder
	for i, sc := range result {
		fmt.Fprintf(&b, "%d. %s #%d (offset %d) score=%.4f\n",
			i+1, sc.Chunk.Source(), sc.Chunk.SequenceIndex, sc.Chunk.Offset, sc.Score)
	}
	return b.String()
}
