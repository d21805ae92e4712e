// internal/pipeline/knowledge-store/store.go
package knowledgestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"clinical-decision-pipeline/internal/common/genai"
	"clinical-decision-pipeline/internal/common/logger"
	"clinical-decision-pipeline/internal/common/metrics"
	"clinical-decision-pipeline/internal/common/observability"
)

const Operation = "knowledge-store"

var (
	ErrNoChunks      = errors.New("NO_CHUNKS")
	ErrEmbedding     = errors.New("EMBEDDING_FAILED")
	ErrPersistFailed = errors.New("ARTIFACT_PERSIST_FAILED")
)

const (
	outcomeVector   = "vector"
	outcomeKeyword  = "keyword"
	outcomeFallback = "fallback"
)

// snapshot is one published index/chunk pair. It is never modified after
// publication; a rebuild publishes a new snapshot.
type snapshot struct {
	index      *FlatIndex
	chunks     []DocumentChunk
	generation string
	loadedAt   time.Time
	sources    int
}

type Store struct {
	config        *Config
	embedder      genai.Embedder
	queryEmbedder genai.Embedder
	artifacts     ArtifactStore
	keyword       KeywordIndex
	tracing       *observability.Tracing
	logger        logger.Logger

	current  atomic.Pointer[snapshot]
	ingestMu sync.Mutex
}

// NewStore wires the store. artifacts, keyword and cache are optional; a non-nil
// cache puts query embeddings behind Redis.
func NewStore(config *Config, embedder genai.Embedder, artifacts ArtifactStore, keyword KeywordIndex, cache *redis.Client, log logger.Logger) *Store {
	if config == nil {
		config = LoadConfig()
	}
	config = config.withDefaults()
	log = logger.ForComponent(log, Operation)

	queryEmbedder := embedder
	if cache != nil && embedder != nil {
		queryEmbedder = NewCachedEmbedder(embedder, cache, config.EmbeddingModel, config.QueryCacheTTL, log)
	}

	return &Store{
		config:        config,
		embedder:      embedder,
		queryEmbedder: queryEmbedder,
		artifacts:     artifacts,
		keyword:       keyword,
		logger:        log,
	}
}

// WithTracing enables spans around ingest and retrieval.
func (s *Store) WithTracing(t *observability.Tracing) *Store {
	s.tracing = t
	return s
}

func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

func (s *Store) publish(a *IndexArtifacts) {
	sources := make(map[string]struct{})
	for _, c := range a.Chunks {
		sources[c.Source] = struct{}{}
	}
	s.current.Store(&snapshot{
		index:      a.Index,
		chunks:     a.Chunks,
		generation: a.Generation,
		loadedAt:   time.Now().UTC(),
		sources:    len(sources),
	})
	metrics.IndexedChunks.Set(float64(len(a.Chunks)))
}

// Load restores persisted artifacts. When they are absent or incomplete the
// store keeps its current snapshot (or the synthetic fallback) and
// ErrArtifactsNotFound is returned.
func (s *Store) Load(ctx context.Context) error {
	if s.artifacts == nil {
		return ErrArtifactsNotFound
	}
	a, err := s.artifacts.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrArtifactsNotFound) {
			s.logger.Info("no complete persisted index, keeping current snapshot", map[string]interface{}{
				"backend": s.artifacts.Backend(),
				"detail":  err.Error(),
			})
		} else {
			s.logger.Error("failed to load index artifacts", map[string]interface{}{
				"backend": s.artifacts.Backend(),
				"error":   err.Error(),
			})
		}
		return err
	}

	if cur := s.current.Load(); cur != nil && cur.generation == a.Generation {
		return nil
	}
	s.publish(a)
	s.logger.Info("index loaded", map[string]interface{}{
		"backend":    s.artifacts.Backend(),
		"generation": a.Generation,
		"chunkCount": len(a.Chunks),
		"dimension":  a.Index.Dim(),
	})
	return nil
}

// Ingest embeds every chunk in fixed-size batches, builds a fresh index,
// persists it and then publishes it. Chunks are renumbered by position.
// Concurrent ingests are serialised; searches keep using the previous snapshot
// until the swap.
func (s *Store) Ingest(ctx context.Context, chunks []DocumentChunk) (*IngestResult, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrEmbedding)
	}

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	startTime := time.Now()
	ctx, span := s.tracing.StartSpan(ctx, "knowledge.ingest", attribute.Int("chunk.count", len(chunks)))
	defer span.End()

	ordered := make([]DocumentChunk, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		c.ChunkIndex = i
		ordered[i] = c
		texts[i] = c.Text
	}

	var (
		index   *FlatIndex
		batches int
	)
	for start := 0; start < len(texts); start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batchStart := time.Now()
		vecs, err := s.embedder.Embed(ctx, texts[start:end])
		metrics.EmbeddingBatchDuration.Observe(time.Since(batchStart).Seconds())
		if err != nil {
			err = fmt.Errorf("%w: batch %d: %v", ErrEmbedding, batches, err)
			s.failIngest(ctx, err)
			return nil, err
		}
		if len(vecs) != end-start {
			err = fmt.Errorf("%w: batch %d returned %d vectors for %d texts", ErrEmbedding, batches, len(vecs), end-start)
			s.failIngest(ctx, err)
			return nil, err
		}

		if index == nil {
			if len(vecs[0]) == 0 {
				err = fmt.Errorf("%w: empty embedding vector", ErrEmbedding)
				s.failIngest(ctx, err)
				return nil, err
			}
			index = NewFlatIndex(len(vecs[0]))
		}
		if err := index.Add(vecs); err != nil {
			s.failIngest(ctx, err)
			return nil, err
		}
		batches++

		s.logger.Debug("embedded batch", map[string]interface{}{
			"batch":    batches,
			"embedded": end,
			"total":    len(texts),
		})
	}

	a := &IndexArtifacts{
		Generation: uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Index:      index,
		Chunks:     ordered,
	}

	if s.artifacts != nil {
		if err := s.artifacts.Save(ctx, a); err != nil {
			err = fmt.Errorf("%w: %v", ErrPersistFailed, err)
			s.failIngest(ctx, err)
			return nil, err
		}
	}
	s.publish(a)

	result := &IngestResult{
		Generation: a.Generation,
		ChunkCount: len(ordered),
		Dimension:  index.Dim(),
		Batches:    batches,
	}

	if s.keyword != nil {
		if err := s.keyword.IndexChunks(ctx, a.Generation, ordered); err != nil {
			s.logger.Warn("keyword mirror update failed", map[string]interface{}{
				"generation": a.Generation,
				"error":      err.Error(),
			})
		} else {
			result.Mirrored = true
		}
	}

	metrics.PipelineOperationsCompleted.WithLabelValues("ingest").Inc()
	metrics.PipelineOperationDuration.WithLabelValues("ingest").Observe(time.Since(startTime).Seconds())
	s.logger.Info("index rebuilt", map[string]interface{}{
		"generation": a.Generation,
		"chunkCount": len(ordered),
		"dimension":  index.Dim(),
		"batches":    batches,
		"mirrored":   result.Mirrored,
		"durationMs": time.Since(startTime).Milliseconds(),
	})
	return result, nil
}

func (s *Store) failIngest(ctx context.Context, err error) {
	observability.RecordError(ctx, err)
	code := "UNKNOWN_ERROR"
	switch {
	case errors.Is(err, ErrEmbedding):
		code = "EMBEDDING_FAILED"
	case errors.Is(err, ErrPersistFailed):
		code = "ARTIFACT_PERSIST_FAILED"
	case errors.Is(err, ErrDimensionMismatch):
		code = "DIMENSION_MISMATCH"
	}
	metrics.PipelineOperationsFailed.WithLabelValues("ingest", code).Inc()
	s.logger.Error("ingest failed", map[string]interface{}{
		"errorCode": code,
		"error":     err.Error(),
	})
}

// Retrieve returns up to topK chunks ranked by similarity. It never fails:
// with no index it returns the single synthetic fallback result, and when the
// query cannot be embedded it tries the keyword mirror first.
func (s *Store) Retrieve(ctx context.Context, query string, topK int, source string) []SearchResult {
	if topK <= 0 {
		topK = s.config.TopK
	}
	ctx, span := s.tracing.StartSpan(ctx, "knowledge.retrieve",
		attribute.Int("top_k", topK),
		attribute.String("source_filter", source),
	)
	defer span.End()

	snap := s.current.Load()
	if snap == nil || snap.index.Len() == 0 {
		return s.fallback(ctx, "no index loaded")
	}

	query = strings.TrimSpace(query)
	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed", map[string]interface{}{
			"error": err.Error(),
		})
		if results, ok := s.keywordSearch(ctx, query, topK, source); ok {
			return results
		}
		return s.fallback(ctx, "query embedding failed")
	}

	candidates := 2 * topK
	if n := len(snap.chunks); candidates > n {
		candidates = n
	}
	neighbors, err := snap.index.Search(Normalize(vec), candidates)
	if err != nil {
		s.logger.Warn("vector search failed", map[string]interface{}{
			"error": err.Error(),
		})
		if results, ok := s.keywordSearch(ctx, query, topK, source); ok {
			return results
		}
		return s.fallback(ctx, "vector search failed")
	}

	results := make([]SearchResult, 0, topK)
	for _, nb := range neighbors {
		if nb.Index < 0 || nb.Index >= len(snap.chunks) {
			continue
		}
		chunk := snap.chunks[nb.Index]
		if source != "" && chunk.Source != source {
			continue
		}
		results = append(results, SearchResult{
			Text:     chunk.Text,
			Source:   chunk.Source,
			Page:     chunk.Page,
			Score:    float64(nb.Score),
			Metadata: copyMetadata(chunk.Metadata),
		})
		if len(results) >= topK {
			break
		}
	}

	metrics.RetrievalOutcomes.WithLabelValues(outcomeVector).Inc()
	span.SetAttributes(attribute.Int("result.count", len(results)))
	return results
}

func (s *Store) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.queryEmbedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", ErrEmbedding)
	}
	vecs, err := s.queryEmbedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", ErrEmbedding)
	}
	return vecs[0], nil
}

func (s *Store) keywordSearch(ctx context.Context, query string, topK int, source string) ([]SearchResult, bool) {
	if s.keyword == nil {
		return nil, false
	}
	results, err := s.keyword.Search(ctx, query, topK, source)
	if err != nil {
		s.logger.Warn("keyword search failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	if len(results) == 0 {
		return nil, false
	}
	metrics.RetrievalOutcomes.WithLabelValues(outcomeKeyword).Inc()
	return results, true
}

func (s *Store) fallback(ctx context.Context, reason string) []SearchResult {
	trace.SpanFromContext(ctx).SetAttributes(attribute.Bool("fallback", true))
	metrics.RetrievalOutcomes.WithLabelValues(outcomeFallback).Inc()
	s.logger.Debug("serving fallback result", map[string]interface{}{"reason": reason})
	return []SearchResult{fallbackResult()}
}

// TreatmentWorkflow looks up the standard treatment workflow for a condition.
func (s *Store) TreatmentWorkflow(ctx context.Context, condition string) WorkflowResult {
	query := "Standard treatment workflow protocol for " + condition
	results := s.Retrieve(ctx, query, 3, "")

	if len(results) == 0 || results[0].IsFallback() {
		return WorkflowResult{
			Found:      false,
			Condition:  condition,
			References: []string{},
			Message:    WorkflowNotFoundMessage,
		}
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Text)
	}
	return WorkflowResult{
		Found:      true,
		Condition:  condition,
		Workflow:   strings.Join(texts, "\n\n"),
		References: UniqueSources(results),
		Confidence: results[0].Score,
	}
}

// SearchGuidelines retrieves guidance for a presenting symptom set.
func (s *Store) SearchGuidelines(ctx context.Context, symptoms []string, topK int) []SearchResult {
	query := "Treatment guidelines for patient presenting with: " + strings.Join(symptoms, ", ")
	return s.Retrieve(ctx, query, topK, "")
}

func (s *Store) Stats() Stats {
	st := Stats{Backend: "memory"}
	if s.artifacts != nil {
		st.Backend = s.artifacts.Backend()
	}
	snap := s.current.Load()
	if snap == nil {
		return st
	}
	loadedAt := snap.loadedAt
	st.IndexLoaded = true
	st.TotalChunks = len(snap.chunks)
	st.TotalVectors = snap.index.Len()
	st.Dimension = snap.index.Dim()
	st.UniqueSources = snap.sources
	st.Generation = snap.generation
	st.LoadedAt = &loadedAt
	return st
}

// UniqueSources returns the distinct sources of results in first-seen order.
func UniqueSources(results []SearchResult) []string {
	seen := make(map[string]struct{}, len(results))
	out := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		out = append(out, r.Source)
	}
	return out
}

func copyMetadata(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
