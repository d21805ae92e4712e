// internal/api/triage.go
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "clinical-decision-pipeline/internal/common/errors"
	"clinical-decision-pipeline/internal/common/validation"
	"clinical-decision-pipeline/internal/models"
	clinicaltriage "clinical-decision-pipeline/internal/pipeline/clinical-triage"
)

type StartSessionRequest struct {
	Symptoms    json.RawMessage        `json:"symptoms"`
	PatientInfo map[string]interface{} `json:"patientInfo,omitempty"`
}

type SessionResponse struct {
	Session      *clinicaltriage.Session  `json:"session"`
	NextQuestion *clinicaltriage.Question `json:"nextQuestion"`
}

type QuestionResponse struct {
	SessionID string                   `json:"sessionId"`
	Question  *clinicaltriage.Question `json:"question"`
}

type ResponseRequest struct {
	Category string `json:"category"`
	Answer   string `json:"answer"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if se := decodeJSON(r, &req); se != nil {
		s.writeError(w, r, se)
		return
	}
	if len(req.Symptoms) == 0 || string(req.Symptoms) == "null" {
		s.writeError(w, r, apperrors.NewInvalidInputError("symptoms is required"))
		return
	}
	if se := validateRaw(validation.SymptomListSchema, "symptoms", req.Symptoms); se != nil {
		s.writeError(w, r, se)
		return
	}
	var symptoms []models.StructuredSymptom
	if err := json.Unmarshal(req.Symptoms, &symptoms); err != nil {
		s.writeError(w, r, apperrors.NewInvalidInputError("symptoms: "+err.Error()))
		return
	}

	ctx := r.Context()
	sess, err := s.deps.Triage.StartSession(ctx, s.enrich(symptoms), req.PatientInfo)
	if err != nil {
		s.writeError(w, r, toStandardError("", err))
		return
	}
	q, err := s.deps.Triage.NextQuestion(ctx, sess.ID)
	if err != nil {
		s.writeError(w, r, toStandardError(sess.ID, err))
		return
	}
	current, err := s.deps.Triage.GetSession(ctx, sess.ID)
	if err != nil {
		s.writeError(w, r, toStandardError(sess.ID, err))
		return
	}

	w.Header().Set("Location", "/api/triage/sessions/"+current.ID)
	writeJSON(w, http.StatusCreated, SessionResponse{Session: current, NextQuestion: q})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.deps.Triage.GetSession(r.Context(), id)
	if err != nil {
		s.writeError(w, r, toStandardError(id, err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) nextQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q, err := s.deps.Triage.NextQuestion(r.Context(), id)
	if err != nil {
		s.writeError(w, r, toStandardError(id, err))
		return
	}
	writeJSON(w, http.StatusOK, QuestionResponse{SessionID: id, Question: q})
}

func (s *Server) processResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ResponseRequest
	if se := decodeJSON(r, &req); se != nil {
		s.writeError(w, r, se)
		return
	}

	result, err := s.deps.Triage.ProcessResponse(r.Context(), id, clinicaltriage.Category(req.Category), req.Answer)
	if err != nil {
		s.writeError(w, r, toStandardError(id, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) generateAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	assessment, err := s.deps.Triage.GenerateAssessment(r.Context(), id)
	if err != nil {
		s.writeError(w, r, toStandardError(id, err))
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.deps.Triage.ResetSession(r.Context(), id)
	if err != nil {
		s.writeError(w, r, toStandardError(id, err))
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Triage.EndSession(r.Context(), id); err != nil {
		s.writeError(w, r, toStandardError(id, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
