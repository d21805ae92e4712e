// internal/pipeline/knowledge-store/models.go
package knowledgestore

import "time"

const (
	FallbackSource = "system"
	FallbackScore  = 0.5
	FallbackText   = "Please upload ICMR Standard Treatment Workflow documents to enable specific guideline retrieval. " +
		"In the meantime, general medical best practices apply."

	// MetadataFallback marks the synthetic result returned when no index is loaded.
	MetadataFallback = "fallback"

	WorkflowNotFoundMessage = "No specific ICMR guidelines found. Please consult standard medical references."
)

// DocumentChunk is one fragment of a reference document. ChunkIndex equals the
// chunk's position in the index once ingested.
type DocumentChunk struct {
	Text       string                 `json:"text"`
	Source     string                 `json:"source"`
	Page       int                    `json:"page"`
	ChunkIndex int                    `json:"chunkIndex"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type SearchResult struct {
	Text     string                 `json:"text"`
	Source   string                 `json:"source"`
	Page     int                    `json:"page"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// IsFallback reports whether r is the synthetic no-evidence result.
func (r SearchResult) IsFallback() bool {
	v, ok := r.Metadata[MetadataFallback].(bool)
	return ok && v
}

type WorkflowResult struct {
	Found      bool     `json:"found"`
	Condition  string   `json:"condition"`
	Workflow   string   `json:"workflow,omitempty"`
	References []string `json:"references"`
	Confidence float64  `json:"confidence,omitempty"`
	Message    string   `json:"message,omitempty"`
}

type Stats struct {
	IndexLoaded   bool       `json:"indexLoaded"`
	TotalChunks   int        `json:"totalChunks"`
	TotalVectors  int        `json:"totalVectors"`
	Dimension     int        `json:"dimension"`
	UniqueSources int        `json:"uniqueSources"`
	Generation    string     `json:"generation,omitempty"`
	LoadedAt      *time.Time `json:"loadedAt,omitempty"`
	Backend       string     `json:"backend"`
}

// IngestResult summarises one completed ingest.
type IngestResult struct {
	Generation string `json:"generation"`
	ChunkCount int    `json:"chunkCount"`
	Dimension  int    `json:"dimension"`
	Batches    int    `json:"batches"`
	Mirrored   bool   `json:"mirrored"`
}

func fallbackResult() SearchResult {
	return SearchResult{
		Text:     FallbackText,
		Source:   FallbackSource,
		Page:     0,
		Score:    FallbackScore,
		Metadata: map[string]interface{}{MetadataFallback: true},
	}
}
