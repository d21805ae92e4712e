// internal/pipeline/knowledge-store/config.go
package knowledgestore

import "time"

const (
	DefaultTopK         = 5
	DefaultBatchSize    = 10
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

type Config struct {
	IndexDir       string
	TopK           int
	BatchSize      int
	ChunkSize      int
	ChunkOverlap   int
	QueryCacheTTL  time.Duration
	EmbeddingModel string
}

func LoadConfig() *Config {
	return &Config{
		IndexDir:      "data/vector_store",
		TopK:          DefaultTopK,
		BatchSize:     DefaultBatchSize,
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		QueryCacheTTL: time.Hour,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.TopK <= 0 {
		out.TopK = DefaultTopK
	}
	if out.BatchSize <= 0 {
		out.BatchSize = DefaultBatchSize
	}
	if out.ChunkSize <= 0 {
		out.ChunkSize = DefaultChunkSize
	}
	if out.ChunkOverlap < 0 || out.ChunkOverlap >= out.ChunkSize {
		out.ChunkOverlap = DefaultChunkOverlap
	}
	return &out
}
