// internal/models/symptom.go
package models

import "strings"

// Severity is the clinical severity tier of a single symptom.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the four known tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityCritical:
		return true
	}
	return false
}

// Rank maps the tier onto the 0..3 scale used by the feature vector.
// Unknown values rank as moderate.
func (s Severity) Rank() int {
	switch s {
	case SeverityMild:
		return 0
	case SeveritySevere:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 1
	}
}

// StructuredSymptom is the clinical representation of one reported symptom.
// Values are treated as immutable once built.
type StructuredSymptom struct {
	OriginalText     string   `json:"originalText"`
	ClinicalTerm     string   `json:"clinicalTerm"`
	ICD10Code        string   `json:"icd10Code,omitempty"`
	SnomedCode       string   `json:"snomedCode,omitempty"`
	BodySystem       string   `json:"bodySystem"`
	Severity         Severity `json:"severity"`
	Duration         string   `json:"duration,omitempty"`
	Location         string   `json:"location,omitempty"`
	ModifyingFactors []string `json:"modifyingFactors,omitempty"`
}

// Key returns the clinical term in ontology key form ("chest pain" -> "chest_pain").
func (s StructuredSymptom) Key() string {
	return strings.ReplaceAll(s.ClinicalTerm, " ", "_")
}

// HasDuration reports whether any duration text was captured.
func (s StructuredSymptom) HasDuration() bool {
	return strings.TrimSpace(s.Duration) != ""
}

// ClinicalTerms returns the clinical term of every symptom, in order.
func ClinicalTerms(symptoms []StructuredSymptom) []string {
	terms := make([]string, 0, len(symptoms))
	for _, s := range symptoms {
		terms = append(terms, s.ClinicalTerm)
	}
	return terms
}
