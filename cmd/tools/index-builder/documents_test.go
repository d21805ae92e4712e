package main

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ks "clinical-decision-pipeline/internal/pipeline/knowledge-store"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"malaria.txt":             {Data: []byte("Malaria presents with fever. Give artemisinin therapy.")},
		"cardiac/chest-pain.md":   {Data: []byte("Chest pain needs an ECG.\fPage two covers troponin.")},
		"cardiac/notes/old.txt":   {Data: []byte("Archived note.")},
		"images/ecg.png":          {Data: []byte{0x89, 0x50}},
		"respiratory/asthma.txt":  {Data: []byte("Asthma causes wheeze.")},
		"respiratory/readme.json": {Data: []byte("{}")},
	}
}

func TestFindDocuments(t *testing.T) {
	paths, err := findDocuments(testFS(), []string{defaultPattern})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"cardiac/chest-pain.md",
		"cardiac/notes/old.txt",
		"malaria.txt",
		"respiratory/asthma.txt",
	}, paths)
}

func TestFindDocuments_Deduplicates(t *testing.T) {
	paths, err := findDocuments(testFS(), []string{"**/*.txt", "respiratory/*.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cardiac/notes/old.txt", "malaria.txt", "respiratory/asthma.txt"}, paths)
}

func TestFindDocuments_InvalidPattern(t *testing.T) {
	_, err := findDocuments(testFS(), []string{"[unclosed"})
	assert.Error(t, err)
}

func TestChunkDocuments_SplitsPages(t *testing.T) {
	chunks, err := chunkDocuments(testFS(), []string{"cardiac/chest-pain.md", "malaria.txt"}, ks.NewChunker(0, 0))
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "cardiac/chest-pain.md", chunks[0].Source)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, "Chest pain needs an ECG.", chunks[0].Text)
	assert.Equal(t, 2, chunks[1].Page)
	assert.Equal(t, "malaria.txt", chunks[2].Source)
	assert.Equal(t, "Malaria presents with fever. Give artemisinin therapy.", chunks[2].Text)
}

func TestChunkDocuments_MissingFile(t *testing.T) {
	_, err := chunkDocuments(testFS(), []string{"nope.txt"}, ks.NewChunker(0, 0))
	assert.Error(t, err)
}

func TestSplitPatterns(t *testing.T) {
	assert.Equal(t, []string{"**/*.txt", "**/*.md"}, splitPatterns(" **/*.txt , ,**/*.md"))
	assert.Nil(t, splitPatterns(""))
}
