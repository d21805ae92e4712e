// internal/api/risk.go
package api

import (
	"encoding/json"
	"net/http"

	apperrors "clinical-decision-pipeline/internal/common/errors"
	"clinical-decision-pipeline/internal/common/validation"
	"clinical-decision-pipeline/internal/models"
	escalationalert "clinical-decision-pipeline/internal/pipeline/escalation-alert"
	riskscoring "clinical-decision-pipeline/internal/pipeline/risk-scoring"
)

type RiskAssessRequest struct {
	Symptoms   json.RawMessage `json:"symptoms"`
	VitalSigns json.RawMessage `json:"vitalSigns,omitempty"`
	PatientAge *int            `json:"patientAge,omitempty"`
}

type AnalyzeRequest struct {
	RiskAssessRequest
	PatientInfo map[string]interface{} `json:"patientInfo,omitempty"`
}

type AnalyzeResponse struct {
	SessionID  string                     `json:"sessionId"`
	Risk       *models.RiskAssessment     `json:"risk"`
	Assessment *models.ClinicalAssessment `json:"assessment"`
	Alert      *escalationalert.Output    `json:"alert,omitempty"`
}

// parse validates the raw fragments and returns enriched scoring input.
func (s *Server) parseRiskInput(req *RiskAssessRequest) (*riskscoring.Input, *apperrors.StandardError) {
	if len(req.Symptoms) == 0 || string(req.Symptoms) == "null" {
		return nil, apperrors.NewInvalidInputError("symptoms is required")
	}
	if se := validateRaw(validation.SymptomListSchema, "symptoms", req.Symptoms); se != nil {
		return nil, se
	}
	if se := validateRaw(validation.VitalSignsSchema, "vitalSigns", req.VitalSigns); se != nil {
		return nil, se
	}
	if req.PatientAge != nil && (*req.PatientAge < 0 || *req.PatientAge > 130) {
		return nil, apperrors.NewInvalidInputError("patientAge must be between 0 and 130")
	}

	var symptoms []models.StructuredSymptom
	if err := json.Unmarshal(req.Symptoms, &symptoms); err != nil {
		return nil, apperrors.NewInvalidInputError("symptoms: " + err.Error())
	}
	if len(symptoms) == 0 {
		return nil, apperrors.NewInvalidInputError("at least one symptom is required")
	}

	var vitals *models.VitalSigns
	if len(req.VitalSigns) > 0 && string(req.VitalSigns) != "null" {
		vitals = &models.VitalSigns{}
		if err := json.Unmarshal(req.VitalSigns, vitals); err != nil {
			return nil, apperrors.NewInvalidInputError("vitalSigns: " + err.Error())
		}
	}

	return &riskscoring.Input{
		Symptoms:   s.enrich(symptoms),
		VitalSigns: vitals,
		PatientAge: req.PatientAge,
	}, nil
}

func (s *Server) enrich(symptoms []models.StructuredSymptom) []models.StructuredSymptom {
	out := make([]models.StructuredSymptom, len(symptoms))
	for i, sym := range symptoms {
		out[i] = s.deps.Ontology.Enrich(sym)
	}
	return out
}

func (s *Server) assessRisk(w http.ResponseWriter, r *http.Request) {
	var req RiskAssessRequest
	if se := decodeJSON(r, &req); se != nil {
		s.writeError(w, r, se)
		return
	}
	input, se := s.parseRiskInput(&req)
	if se != nil {
		s.writeError(w, r, se)
		return
	}

	writeJSON(w, http.StatusOK, s.deps.Risk.Execute(r.Context(), input))
}

// analyze scores risk, runs a one-shot assessment and raises an escalation
// alert when required. Alert delivery failures do not fail the request.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if se := decodeJSON(r, &req); se != nil {
		s.writeError(w, r, se)
		return
	}
	input, se := s.parseRiskInput(&req.RiskAssessRequest)
	if se != nil {
		s.writeError(w, r, se)
		return
	}

	ctx := r.Context()
	risk := s.deps.Risk.Execute(ctx, input)

	sess, err := s.deps.Triage.QuickAssess(ctx, input.Symptoms, req.PatientInfo)
	if err != nil {
		s.writeError(w, r, toStandardError("", err))
		return
	}

	resp := AnalyzeResponse{
		SessionID:  sess.ID,
		Risk:       risk,
		Assessment: sess.Assessment,
	}

	if risk.EscalationRequired && s.deps.Escalation != nil {
		alertInput := &escalationalert.Input{
			SessionID: sess.ID,
			Symptoms:  input.Symptoms,
			Risk:      risk,
		}
		if sess.Assessment != nil {
			alertInput.ChiefComplaint = sess.Assessment.ChiefComplaint
		}
		out, err := s.deps.Escalation.Execute(ctx, alertInput)
		if err != nil {
			s.logger.Error("escalation alert failed", map[string]interface{}{
				"sessionId": sess.ID,
				"error":     err.Error(),
			})
		}
		resp.Alert = out
	}

	writeJSON(w, http.StatusOK, resp)
}
