package models

// EmbeddingVector is the output of an embedding model for one text.
type EmbeddingVector []float32

// ScoredChunk pairs a retrieved chunk with its similarity to the query.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// QueryResult is ranked by descending score.
type QueryResult []ScoredChunk

// Chunks drops the scores, keeping rank order.
func (r QueryResult) Chunks() []Chunk {
	out := make([]Chunk, len(r))
	for i, sc := range r {
		out[i] = sc.Chunk
	}
	return out
}

// PromptResponse is the outcome of one question answered against a document.
type PromptResponse struct {
	RunID   string
	Query   string
	Source  string
	Content string
	// Parsed is set when Content decoded as a JSON object.
	Parsed       map[string]any
	ParseFailure *ParseFailure
	Retrieved    QueryResult
}
