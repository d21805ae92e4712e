// internal/api/ontology.go
package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "clinical-decision-pipeline/internal/common/errors"
)

type TermsResponse struct {
	Terms []string `json:"terms"`
	Count int      `json:"count"`
}

func (s *Server) listTerms(w http.ResponseWriter, r *http.Request) {
	terms := s.deps.Ontology.AllTerms()
	writeJSON(w, http.StatusOK, TermsResponse{Terms: terms, Count: len(terms)})
}

// lookupTerm accepts a table key or a free-text phrase ("my chest hurts").
func (s *Server) lookupTerm(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(chi.URLParam(r, "term"))
	if raw == "" {
		s.writeError(w, r, apperrors.NewInvalidInputError("term is required"))
		return
	}
	term, ok := s.deps.Ontology.Resolve(raw)
	if !ok {
		s.writeError(w, r, apperrors.NewTermNotFoundError(raw))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Ontology.Info(term))
}
