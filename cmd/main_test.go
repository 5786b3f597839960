package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa/internal/models"
)

func response() *models.PromptResponse {
	return &models.PromptResponse{
		Query:   "Convert the invoice of purchase as json",
		Source:  "swiggy.pdf",
		Content: `{"total": 310}`,
		Parsed:  map[string]any{"total": float64(310)},
		Retrieved: models.QueryResult{
			{Chunk: models.Chunk{SequenceIndex: 1, Offset: 800, Metadata: map[string]string{"source": "swiggy.pdf"}}, Score: 0.8},
		},
	}
}

func TestPrintResponse(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printResponse(&out, response(), false))

	assert.Equal(t,
		"Convert the invoice of purchase as json\n\n"+
			"swiggy.pdf\n1. swiggy.pdf #1 (offset 800) score=0.8000\n\n"+
			"{\"total\": 310}\n\n",
		out.String())
}

func TestPrintResponse_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printResponse(&out, response(), true))
	assert.Contains(t, out.String(), "{\n  \"total\": 310\n}\n")

	resp := response()
	resp.Parsed = nil
	resp.ParseFailure = &models.ParseFailure{Text: resp.Content, Reason: "bad"}
	out.Reset()
	require.NoError(t, printResponse(&out, resp, true))
	assert.NotContains(t, out.String(), "{\n  \"total\"")
}
