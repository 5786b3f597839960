package models

const (
	ThinkTag         = `(?s)<think>.*?</think>`
	ContextSeparator = "\n---\n"
)

var (
	// AnswerInstruction follows the retrieved context in every prompt.
	AnswerInstruction = `You only reply as json. Answer using only the context above and return a single JSON object with no surrounding text.`

	AnswerPromptTemplate = `Context:
%s

%s

Question: %s
`
)
