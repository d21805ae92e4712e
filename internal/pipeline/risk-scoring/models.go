// internal/pipeline/risk-scoring/models.go
package riskscoring

import "clinical-decision-pipeline/internal/models"

type Input struct {
	Symptoms   []models.StructuredSymptom `json:"symptoms"`
	VitalSigns *models.VitalSigns         `json:"vitalSigns,omitempty"`
	PatientAge *int                       `json:"patientAge,omitempty"`
}

// Scoring paths reported on every assessment.
const (
	PathClassifier   = "classifier"
	PathRules        = "rules"
	PathFeatureRules = "feature_rules"
)
