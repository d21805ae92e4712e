// internal/pipeline/clinical-triage/parse.go
package clinicaltriage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"clinical-decision-pipeline/internal/common/validation"
	"clinical-decision-pipeline/internal/models"
)

var ErrParseFailed = errors.New("PARSE_FAILED")

const (
	FallbackChiefComplaint = "Unspecified complaint"
	FallbackHistory        = "Assessment generation failed. Please consult a healthcare provider."
	FallbackAction         = "Consult a healthcare provider for proper evaluation"
	FallbackUrgency        = "routine"
)

// ParseError is returned when reasoning output is not a valid assessment.
type ParseError struct {
	Problems []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrParseFailed, strings.Join(e.Problems, "; "))
}

func (e *ParseError) Unwrap() error { return ErrParseFailed }

type assessmentWire struct {
	ChiefComplaint          string                         `json:"chief_complaint"`
	HistoryOfPresentIllness string                         `json:"history_of_present_illness"`
	RelevantMedicalHistory  *string                        `json:"relevant_medical_history"`
	DifferentialDiagnoses   []models.DifferentialDiagnosis `json:"differential_diagnoses"`
	RecommendedActions      []string                       `json:"recommended_actions"`
	UrgencyLevel            string                         `json:"urgency_level"`
}

// ParseAssessment validates raw against the assessment schema and decodes it.
// Anything else, including prose around the JSON, yields a *ParseError.
func ParseAssessment(raw string) (*models.ClinicalAssessment, error) {
	body := []byte(strings.TrimSpace(raw))
	if len(body) == 0 {
		return nil, &ParseError{Problems: []string{"empty response"}}
	}

	result := validation.AssessmentSchema.ValidateBytes(body)
	if !result.Valid {
		return nil, &ParseError{Problems: result.GetErrorMessages()}
	}

	var wire assessmentWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &ParseError{Problems: []string{err.Error()}}
	}

	a := &models.ClinicalAssessment{
		ChiefComplaint:          wire.ChiefComplaint,
		HistoryOfPresentIllness: wire.HistoryOfPresentIllness,
		DifferentialDiagnoses:   wire.DifferentialDiagnoses,
		RecommendedActions:      wire.RecommendedActions,
		UrgencyLevel:            wire.UrgencyLevel,
		STWReferences:           []string{},
	}
	if wire.RelevantMedicalHistory != nil {
		a.RelevantMedicalHistory = *wire.RelevantMedicalHistory
	}
	if a.DifferentialDiagnoses == nil {
		a.DifferentialDiagnoses = []models.DifferentialDiagnosis{}
	}
	if a.RecommendedActions == nil {
		a.RecommendedActions = []string{}
	}
	return a, nil
}

// FallbackAssessment is the minimal degraded assessment built from the first
// symptom term alone.
func FallbackAssessment(primaryTerm string) *models.ClinicalAssessment {
	complaint := primaryTerm
	if complaint == "" {
		complaint = FallbackChiefComplaint
	}
	return &models.ClinicalAssessment{
		ChiefComplaint:          complaint,
		HistoryOfPresentIllness: FallbackHistory,
		DifferentialDiagnoses:   []models.DifferentialDiagnosis{},
		RecommendedActions:      []string{FallbackAction},
		UrgencyLevel:            FallbackUrgency,
		STWReferences:           []string{},
		Degraded:                true,
	}
}
