package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkTextEmptyReturnsNil(t *testing.T) {
	c := New()
	require.Nil(t, c.ChunkText("   ", "doc-1"))
	require.Nil(t, c.ChunkText("", "doc-1"))
}

func TestChunkTextParagraphStrategyPositionsRecoverSubstrings(t *testing.T) {
	c := New()
	text := strings.Repeat("Section 232 imposes additional duties on steel articles. ", 10) +
		"\n\n" +
		strings.Repeat("Section 301 covers products of China under Note 20. ", 10)

	chunks := c.ChunkText(text, "doc-1")
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		require.GreaterOrEqual(t, chunk.CharStart, 0)
		require.LessOrEqual(t, chunk.CharEnd, len(text)+len(chunk.Text))
		require.Equal(t, chunk.Text, text[chunk.CharStart:chunk.CharEnd])
		require.NotEmpty(t, chunk.TextHash)
		require.Equal(t, "doc-1", chunk.DocumentID)
	}
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.ChunkIndex)
	}
}

func TestChunkTextMergesSmallChunks(t *testing.T) {
	c := New()
	c.MinChunkSize = 50
	c.MaxChunkSize = 1200
	text := "Short one.\n\nShort two.\n\n" + strings.Repeat("A fairly long paragraph sentence. ", 3)

	chunks := c.ChunkText(text, "doc-2")
	require.NotEmpty(t, chunks)
	// merging should have joined the two short paragraphs into the first chunk
	require.Contains(t, chunks[0].Text, "Short one.")
}

func TestChunkTextSplitsOversizedParagraph(t *testing.T) {
	c := New()
	c.MaxChunkSize = 100
	c.MinChunkSize = 10
	c.Overlap = 10

	sentence := strings.Repeat("word ", 40) + "."
	text := sentence + " " + sentence

	chunks := c.ChunkText(text, "doc-3")
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.LessOrEqual(t, len(chunk.Text), c.MaxChunkSize+1)
	}
}

func TestChunkTextFixedStrategy(t *testing.T) {
	c := New()
	c.Strategy = StrategyFixed
	c.MaxChunkSize = 100
	c.Overlap = 10
	c.MinChunkSize = 10

	text := strings.Repeat("x", 350)
	chunks := c.ChunkText(text, "doc-4")
	require.NotEmpty(t, chunks)
}

func TestChunkTextHashIsDeterministic(t *testing.T) {
	c := New()
	text := strings.Repeat("Stable content for hashing. ", 20)
	chunks1 := c.ChunkText(text, "doc-5")
	chunks2 := c.ChunkText(text, "doc-5")
	require.Equal(t, len(chunks1), len(chunks2))
	for i := range chunks1 {
		require.Equal(t, chunks1[i].TextHash, chunks2[i].TextHash)
	}
}
