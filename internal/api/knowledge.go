// internal/api/knowledge.go
package api

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "clinical-decision-pipeline/internal/common/errors"
	knowledgestore "clinical-decision-pipeline/internal/pipeline/knowledge-store"
)

const maxTopK = 50

type SearchResponse struct {
	Query   string                        `json:"query"`
	Results []knowledgestore.SearchResult `json:"results"`
	Sources []string                      `json:"sources"`
}

type Document struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

type IngestRequest struct {
	Documents []Document `json:"documents"`
}

func (s *Server) searchKnowledge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.writeError(w, r, apperrors.NewInvalidInputError("query parameter q is required"))
		return
	}

	topK := s.config.DefaultTopK
	if raw := q.Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTopK {
			s.writeError(w, r, apperrors.NewInvalidInputError("top_k must be an integer between 1 and 50"))
			return
		}
		topK = n
	}

	results := s.deps.Knowledge.Retrieve(r.Context(), query, topK, strings.TrimSpace(q.Get("source")))
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Results: results,
		Sources: knowledgestore.UniqueSources(results),
	})
}

func (s *Server) knowledgeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Knowledge.Stats())
}

func (s *Server) treatmentWorkflow(w http.ResponseWriter, r *http.Request) {
	condition := strings.TrimSpace(r.URL.Query().Get("condition"))
	if condition == "" {
		s.writeError(w, r, apperrors.NewInvalidInputError("query parameter condition is required"))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Knowledge.TreatmentWorkflow(r.Context(), condition))
}

// ingestDocuments chunks the posted documents and rebuilds the index from them.
func (s *Server) ingestDocuments(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if se := decodeJSON(r, &req); se != nil {
		s.writeError(w, r, se)
		return
	}
	if len(req.Documents) == 0 {
		s.writeError(w, r, apperrors.NewInvalidInputError("documents is required"))
		return
	}

	var chunks []knowledgestore.DocumentChunk
	for i, doc := range req.Documents {
		if strings.TrimSpace(doc.Source) == "" {
			s.writeError(w, r, apperrors.NewInvalidInputError("documents["+strconv.Itoa(i)+"].source is required"))
			return
		}
		chunks = append(chunks, s.deps.Chunker.Split(doc.Text, doc.Source, doc.Page)...)
	}

	result, err := s.deps.Knowledge.Ingest(r.Context(), chunks)
	if err != nil {
		s.writeError(w, r, toStandardError("", err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
