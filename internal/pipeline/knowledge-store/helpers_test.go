package knowledgestore

import (
	"context"
	"strings"
	"sync"
	"testing"

	"clinical-decision-pipeline/internal/common/logger"
)

var testVocabulary = []string{"fever", "cough", "chest", "pain", "rash", "diabetes", "asthma", "headache"}

// wordEmbedder maps text onto counts of vocabulary words, so similarity is
// predictable. Texts with no vocabulary word get a small constant vector.
type wordEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
}

func (e *wordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches = append(e.batches, append([]string(nil), texts...))
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, len(testVocabulary)+1)
		vec[len(testVocabulary)] = 0.01
		lower := strings.ToLower(t)
		for j, w := range testVocabulary {
			vec[j] = float32(strings.Count(lower, w))
		}
		out[i] = vec
	}
	return out, nil
}

func (e *wordEmbedder) calls() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.batches...)
}

func (e *wordEmbedder) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

func createTestConfig(dir string) *Config {
	cfg := LoadConfig()
	cfg.IndexDir = dir
	return cfg
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewTestLogger(t)
}

func sampleChunks() []DocumentChunk {
	return []DocumentChunk{
		{Text: "Fever management: paracetamol and fluids for fever.", Source: "fever.pdf", Page: 1},
		{Text: "Chest pain evaluation requires ECG. Chest pain may be cardiac.", Source: "cardio.pdf", Page: 3},
		{Text: "Asthma exacerbation with cough: bronchodilators.", Source: "respiratory.pdf", Page: 2},
		{Text: "Persistent cough and fever suggest infection.", Source: "respiratory.pdf", Page: 5},
		{Text: "Diabetes screening with HbA1c.", Source: "endocrine.pdf", Page: 1},
		{Text: "Headache red flags include thunderclap onset.", Source: "neuro.pdf", Page: 4},
	}
}
