package chunker

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa/internal/models"
)

func doc(content string) models.Document {
	return models.Document{Content: content, Metadata: map[string]string{"source": "test.pdf"}}
}

func contents(chunks []models.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -5, 0},
		{"overlap equals size", 4, 4},
		{"overlap exceeds size", 4, 9},
		{"negative overlap", 4, -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.size, tc.overlap)
			assert.ErrorIs(t, err, models.ErrInvalidConfig)

			_, err = Split([]models.Document{doc("abc")}, tc.size, tc.overlap)
			assert.ErrorIs(t, err, models.ErrInvalidConfig)
		})
	}
}

func TestSplit_NoOverlap(t *testing.T) {
	chunks, err := Split([]models.Document{doc("AAAABBBBCCCC")}, 4, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAAA", "BBBB", "CCCC"}, contents(chunks))
	for i, c := range chunks {
		assert.Equal(t, i, c.SequenceIndex)
		assert.Equal(t, i*4, c.Offset)
	}
}

func TestSplit_Overlap(t *testing.T) {
	chunks, err := Split([]models.Document{doc("AAAABBBBCCCC")}, 4, 2)
	require.NoError(t, err)

	// every window starts two runes before the previous one ended
	assert.Equal(t, []string{"AAAA", "AABB", "BBBB", "BBCC", "CCCC"}, contents(chunks))
	assert.Equal(t, "AAAABBBBCCCC", Join(chunks, 2))
}

func TestSplit_EmptyDocument(t *testing.T) {
	chunks, err := Split([]models.Document{doc("")}, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_ShortDocument(t *testing.T) {
	chunks, err := Split([]models.Document{doc("tiny")}, 100, 20)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "tiny", chunks[0].Content)
}

func TestSplit_MetadataAndSequencePerDocument(t *testing.T) {
	a := models.Document{Content: "aaaaaa", Metadata: map[string]string{"source": "a.pdf", "pages": "1"}}
	b := models.Document{Content: "bbbb", Metadata: map[string]string{"source": "b.pdf"}}

	chunks, err := Split([]models.Document{a, b}, 3, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, []int{0, 1, 0, 1}, []int{chunks[0].SequenceIndex, chunks[1].SequenceIndex, chunks[2].SequenceIndex, chunks[3].SequenceIndex})
	assert.Equal(t, a.Metadata, chunks[0].Metadata)
	assert.Equal(t, "b.pdf", chunks[3].Source())

	chunks[0].Metadata["source"] = "mutated"
	assert.Equal(t, "a.pdf", a.Metadata["source"])
	assert.Equal(t, "a.pdf", chunks[1].Metadata["source"])
}

func TestSplit_HardCutCount(t *testing.T) {
	for _, n := range []int{1, 7, 8, 9, 63, 64, 65} {
		content := strings.Repeat("x", n)
		for _, size := range []int{1, 4, 8, 10} {
			chunks, err := Split([]models.Document{doc(content)}, size, 0)
			require.NoError(t, err)
			assert.Len(t, chunks, (n+size-1)/size, "len=%d size=%d", n, size)
		}
	}
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	content := "Hello world. This is a test of chunking."
	s, err := New(15, 0, WithLookback(10))
	require.NoError(t, err)

	chunks := s.Split([]models.Document{doc(content)})
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Hello world.", chunks[0].Content)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 15)
	}
	assert.Equal(t, content, Join(chunks, 0))
}

func TestSplit_PrefersParagraphOverSentence(t *testing.T) {
	content := "Para one.\n\nPara two. More words here"
	s, err := New(20, 0, WithLookback(15))
	require.NoError(t, err)

	chunks := s.Split([]models.Document{doc(content)})
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Para one.\n\n", chunks[0].Content)
	assert.Equal(t, content, Join(chunks, 0))
}

func TestSplit_FallsBackToWordBoundary(t *testing.T) {
	content := "alpha beta gamma delta epsilon"
	s, err := New(12, 0, WithLookback(6))
	require.NoError(t, err)

	chunks := s.Split([]models.Document{doc(content)})
	assert.Equal(t, "alpha beta ", chunks[0].Content)
	assert.Equal(t, content, Join(chunks, 0))
}

func TestSplit_Unicode(t *testing.T) {
	content := "héllo wörld ünïcode ñ"
	chunks, err := Split([]models.Document{doc(content)}, 5, 1)
	require.NoError(t, err)

	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Content))
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 5)
	}
	assert.Equal(t, content, Join(chunks, 1))
}

func TestSplit_Reconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"invoice", "total", "GST.", "item", "\n\n", "qty", "price!", "Swiggy", "\n", "paid?"}

	for trial := 0; trial < 50; trial++ {
		var b strings.Builder
		n := rng.Intn(200)
		for i := 0; i < n; i++ {
			b.WriteString(words[rng.Intn(len(words))])
			b.WriteString(" ")
		}
		content := b.String()
		size := 5 + rng.Intn(60)
		overlap := rng.Intn(size)

		for _, lookback := range []int{0, size / 10, size / 2} {
			s, err := New(size, overlap, WithLookback(lookback))
			require.NoError(t, err)

			chunks := s.Split([]models.Document{doc(content)})
			require.Equal(t, content, Join(chunks, overlap), "size=%d overlap=%d lookback=%d", size, overlap, lookback)

			runes := []rune(content)
			for i, c := range chunks {
				require.NotEmpty(t, c.Content)
				require.Equal(t, i, c.SequenceIndex)
				require.LessOrEqual(t, utf8.RuneCountInString(c.Content), size)
				require.Equal(t, c.Content, string(runes[c.Offset:c.Offset+utf8.RuneCountInString(c.Content)]))
			}
		}
	}
}
