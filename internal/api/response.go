// internal/api/response.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	apperrors "clinical-decision-pipeline/internal/common/errors"
	"clinical-decision-pipeline/internal/common/validation"
	clinicaltriage "clinical-decision-pipeline/internal/pipeline/clinical-triage"
	knowledgestore "clinical-decision-pipeline/internal/pipeline/knowledge-store"
)

type errorResponse struct {
	Error     *apperrors.StandardError `json:"error"`
	RequestID string                   `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, se *apperrors.StandardError) {
	status := apperrors.HTTPStatus(se.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", map[string]interface{}{
			"code":      se.Code,
			"details":   se.Details,
			"requestId": middleware.GetReqID(r.Context()),
		})
	}
	writeJSON(w, status, errorResponse{Error: se, RequestID: middleware.GetReqID(r.Context())})
}

// toStandardError maps pipeline errors onto the API error taxonomy.
func toStandardError(sessionID string, err error) *apperrors.StandardError {
	if se, ok := apperrors.As(err); ok {
		return se
	}
	switch {
	case errors.Is(err, clinicaltriage.ErrSessionNotFound):
		return apperrors.NewSessionNotFoundError(sessionID)
	case errors.Is(err, clinicaltriage.ErrSessionAssessed):
		return apperrors.NewSessionStateError(sessionID, string(clinicaltriage.StateDone), "session already assessed")
	case errors.Is(err, clinicaltriage.ErrSessionNotDone):
		return apperrors.NewSessionStateError(sessionID, "", "session has not been assessed")
	case errors.Is(err, clinicaltriage.ErrInvalidResponse), errors.Is(err, knowledgestore.ErrNoChunks):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, knowledgestore.ErrEmbedding):
		return apperrors.NewEmbeddingFailedError(err)
	case errors.Is(err, knowledgestore.ErrPersistFailed):
		return apperrors.NewArtifactPersistFailedError("", err)
	default:
		return apperrors.NewInternalError(err)
	}
}

func decodeJSON(r *http.Request, v interface{}) *apperrors.StandardError {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewInvalidInputError("request body is empty")
		}
		return apperrors.NewInvalidInputError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// validateRaw checks an optional raw JSON fragment against schema.
func validateRaw(schema *validation.Schema, field string, raw json.RawMessage) *apperrors.StandardError {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	result := schema.ValidateBytes(raw)
	if result.Valid {
		return nil
	}
	se := apperrors.NewInvalidInputError(field + " failed validation")
	se.Metadata = map[string]interface{}{"field": field, "errors": result.GetErrorMessages()}
	return se
}
