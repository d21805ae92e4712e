// internal/models/risk.go
package models

// RiskTier is the coarse bucket derived from the numeric risk score.
type RiskTier string

const (
	RiskTierLow      RiskTier = "low"
	RiskTierMedium   RiskTier = "medium"
	RiskTierHigh     RiskTier = "high"
	RiskTierCritical RiskTier = "critical"
)

// ContributingFactor explains one input's share of the risk picture.
// Weights are explanatory and are not summed into the score.
type ContributingFactor struct {
	Factor       string  `json:"factor"`
	Contribution float64 `json:"contribution"`
}

// RiskAssessment is produced fresh per scoring call and never mutated afterwards.
type RiskAssessment struct {
	RiskScore           float64              `json:"riskScore"`
	RiskLevel           RiskTier             `json:"riskLevel"`
	EscalationRequired  bool                 `json:"escalationRequired"`
	RedFlags            []string             `json:"redFlags"`
	ContributingFactors []ContributingFactor `json:"contributingFactors"`
	Recommendations     []string             `json:"recommendations"`
	ScoringPath         string               `json:"scoringPath"`
}
