// internal/models/assessment.go
package models

// DifferentialDiagnosis is one candidate condition proposed by the reasoning service.
type DifferentialDiagnosis struct {
	Condition       string `json:"condition"`
	Likelihood      string `json:"likelihood"`
	Reasoning       string `json:"reasoning"`
	RedFlagsPresent bool   `json:"red_flags_present"`
}

// ClinicalAssessment is the structured output of a completed triage interview.
type ClinicalAssessment struct {
	ChiefComplaint          string                  `json:"chiefComplaint"`
	HistoryOfPresentIllness string                  `json:"historyOfPresentIllness"`
	RelevantMedicalHistory  string                  `json:"relevantMedicalHistory,omitempty"`
	DifferentialDiagnoses   []DifferentialDiagnosis `json:"differentialDiagnoses"`
	RecommendedActions      []string                `json:"recommendedActions"`
	UrgencyLevel            string                  `json:"urgencyLevel"`
	STWReferences           []string                `json:"stwReferences"`
	Degraded                bool                    `json:"degraded"`
}
