package knowledgestore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_SingleChunk(t *testing.T) {
	c := NewChunker(500, 50)

	chunks := c.Split("Line one\nline two", "stw.pdf", 7)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Line one line two.", chunks[0].Text)
	assert.Equal(t, "stw.pdf", chunks[0].Source)
	assert.Equal(t, 7, chunks[0].Page)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestChunker_SplitsWithOverlap(t *testing.T) {
	c := NewChunker(30, 5)

	chunks := c.Split("Alpha beta gamma. Delta epsilon zeta. Eta theta.", "doc", 1)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Alpha beta gamma.", chunks[0].Text)
	assert.Equal(t, "amma. Delta epsilon zeta.", chunks[1].Text)
	assert.Equal(t, "zeta. Eta theta.", chunks[2].Text)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
	}
}

func TestChunker_OversizedSentenceStandsAlone(t *testing.T) {
	c := NewChunker(10, 2)
	long := strings.Repeat("x", 25)

	chunks := c.Split(long, "doc", 1)

	require.Len(t, chunks, 1)
	assert.Equal(t, long+".", chunks[0].Text)
}

func TestChunker_EmptyText(t *testing.T) {
	assert.Empty(t, NewChunker(500, 50).Split("  \n ", "doc", 1))
}

func TestNewChunker_InvalidOverlapFallsBack(t *testing.T) {
	c := NewChunker(100, 100)
	assert.Equal(t, DefaultChunkOverlap, c.Overlap)

	c = NewChunker(0, -1)
	assert.Equal(t, DefaultChunkSize, c.Size)
	assert.Equal(t, DefaultChunkOverlap, c.Overlap)
}
