// Package chunker splits documents into bounded, optionally overlapping chunks.
package chunker

import (
	"fmt"
	"strings"

	"pdf-qa/internal/models"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Splitter cuts text into windows of at most ChunkSize runes. Each window after
// the first begins Overlap runes before the end of the previous one.
type Splitter struct {
	chunkSize int
	overlap   int
	lookback  int
}

type Option func(*Splitter)

// WithLookback sets how many runes before a hard cut are searched for a
// paragraph, sentence or word boundary. The default is a tenth of the chunk size.
func WithLookback(n int) Option {
	return func(s *Splitter) {
		if n >= 0 {
			s.lookback = n
		}
	}
}

func New(chunkSize, overlap int, opts ...Option) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d", models.ErrInvalidConfig, chunkSize, overlap)
	}
	s := &Splitter{chunkSize: chunkSize, overlap: overlap, lookback: chunkSize / 10}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Split is shorthand for New(chunkSize, overlap) followed by Split.
func Split(docs []models.Document, chunkSize, overlap int) ([]models.Chunk, error) {
	s, err := New(chunkSize, overlap)
	if err != nil {
		return nil, err
	}
	return s.Split(docs), nil
}

// Split chunks every document in order. Chunks of one document are numbered
// from zero and carry a copy of its metadata.
func (s *Splitter) Split(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		for i, span := range s.spans([]rune(doc.Content)) {
			chunks = append(chunks, models.Chunk{
				Content:       span.text,
				Metadata:      models.CopyMetadata(doc.Metadata),
				SequenceIndex: i,
				Offset:        span.start,
			})
		}
	}
	return chunks
}

type span struct {
	start int
	text  string
}

func (s *Splitter) spans(content []rune) []span {
	n := len(content)
	if n == 0 {
		return nil
	}
	out := make([]span, 0, n/(s.chunkSize-s.overlap)+1)
	start := 0
	for {
		end := min(start+s.chunkSize, n)
		if end < n {
			end = s.boundary(content, start, end)
		}
		out = append(out, span{start: start, text: string(content[start:end])})
		if end == n {
			return out
		}
		start = end - s.overlap
	}
}

// boundary moves a hard cut at end back to the nearest paragraph break, else
// sentence end, else whitespace, within the lookback budget. The returned end
// always leaves more than overlap runes in the window so the next window starts
// after this one.
func (s *Splitter) boundary(content []rune, start, end int) int {
	floor := max(end-s.lookback, start+s.overlap+1)
	if floor >= end {
		return end
	}
	for _, isBreak := range []func([]rune, int) bool{paragraphBreak, sentenceEnd, whitespace} {
		for i := end; i > floor; i-- {
			if isBreak(content, i) {
				return i
			}
		}
	}
	return end
}

// The predicates report whether a cut before content[i] falls on a boundary.

func paragraphBreak(content []rune, i int) bool {
	return i >= 2 && content[i-1] == '\n' && content[i-2] == '\n'
}

func sentenceEnd(content []rune, i int) bool {
	if i < 1 {
		return false
	}
	switch content[i-1] {
	case '\n':
		return true
	case '.', '!', '?':
		return i == len(content) || content[i] == ' ' || content[i] == '\n'
	}
	return false
}

func whitespace(content []rune, i int) bool {
	return i >= 1 && (content[i-1] == ' ' || content[i-1] == '\t')
}

// Join reverses Split for the chunks of a single document: it drops the leading
// overlap from every chunk after the first and concatenates the rest.
func Join(chunks []models.Chunk, overlap int) string {
	var content strings.Builder
	for i, c := range chunks {
		if i == 0 {
			content.WriteString(c.Content)
			continue
		}
		r := []rune(c.Content)
		content.WriteString(string(r[min(overlap, len(r)):]))
	}
	return content.String()
}
