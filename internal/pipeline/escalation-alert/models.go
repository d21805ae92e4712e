// internal/pipeline/escalation-alert/models.go
package escalationalert

import "clinical-decision-pipeline/internal/models"

type Input struct {
	SessionID      string                     `json:"sessionId,omitempty"`
	ChiefComplaint string                     `json:"chiefComplaint,omitempty"`
	Symptoms       []models.StructuredSymptom `json:"symptoms"`
	Risk           *models.RiskAssessment     `json:"risk"`
}

type Output struct {
	AlertID  string   `json:"alertId"`
	Status   string   `json:"status"`
	Channels []string `json:"channels"`
	SentAt   string   `json:"sentAt,omitempty"` // ISO 8601
}

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

const (
	ChannelSNS = "sns"
	ChannelSES = "ses"
)
