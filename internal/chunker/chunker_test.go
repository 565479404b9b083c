package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertLossless verifies the core chunking invariants: spans are disjoint,
// increasing, reconstruct the input exactly, and no trimmed chunk exceeds max.
func assertLossless(t *testing.T, input string, chunks []Chunk, maxSize int) {
	t.Helper()

	runes := []rune(input)
	var rebuilt strings.Builder
	prevEnd := 0
	for i, c := range chunks {
		assert.Equal(t, i, c.Sequence)
		require.Equal(t, prevEnd, c.Start, "chunk %d span must start where the previous ended", i)
		require.Greater(t, c.End, c.Start, "chunk %d span must be non-empty", i)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), maxSize, "chunk %d exceeds max size", i)
		assert.Equal(t, strings.TrimSpace(string(runes[c.Start:c.End])), c.Content)
		rebuilt.WriteString(string(runes[c.Start:c.End]))
		prevEnd = c.End
	}
	assert.Equal(t, input, rebuilt.String(), "concatenated spans must reconstruct the input")
	if len(chunks) > 0 {
		assert.Equal(t, len(runes), chunks[len(chunks)-1].End)
	}
}

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, NewSplitter(0).Split(""))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(100)
	chunks := s.Split("just one small paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "just one small paragraph", chunks[0].Content)
	assertLossless(t, "just one small paragraph", chunks, 100)
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	first := strings.Repeat("a", 40)
	second := strings.Repeat("b", 40)
	input := first + "\n\n" + second

	chunks := NewSplitter(60).Split(input)
	require.Len(t, chunks, 2)
	assert.Equal(t, first, chunks[0].Content)
	assert.Equal(t, second, chunks[1].Content)
	assertLossless(t, input, chunks, 60)
}

func TestSplit_FallsBackToSentences(t *testing.T) {
	input := "This is the first sentence. This is the second sentence. And a third one here."

	chunks := NewSplitter(40).Split(input)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0].Content, "."), "cut should land on a sentence end, got %q", chunks[0].Content)
	assertLossless(t, input, chunks, 40)
}

func TestSplit_HardCutWithoutBoundaries(t *testing.T) {
	input := strings.Repeat("A", 1200)

	chunks := NewSplitter(1000).Split(input)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, 1000, len(chunks[0].Content))
	assertLossless(t, input, chunks, 1000)
}

func TestSplit_MultiByteRunes(t *testing.T) {
	input := strings.Repeat("世界。", 30)

	chunks := NewSplitter(25).Split(input)
	require.NotEmpty(t, chunks)
	assertLossless(t, input, chunks, 25)
}

func TestSplit_WhitespaceOnlyInput(t *testing.T) {
	input := "   \n\n   "
	chunks := NewSplitter(50).Split(input)
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Content)
	assertLossless(t, input, chunks, 50)
}

func TestSplit_LongMixedDocument(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("Paragraph body with a few sentences. Here is another one! Short tail.\n\n")
	}
	input := b.String()

	chunks := NewSplitter(200).Split(input)
	require.Greater(t, len(chunks), 10)
	assertLossless(t, input, chunks, 200)
}
