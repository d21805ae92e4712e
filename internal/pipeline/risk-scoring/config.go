// internal/pipeline/risk-scoring/config.go
package riskscoring

// DefaultThreshold is the escalation cut-off used when none is configured.
const DefaultThreshold = 0.6

type Config struct {
	// Threshold is exclusive: a score must exceed it to escalate.
	Threshold float64
	ModelPath string
}

func LoadConfig() *Config {
	return &Config{
		Threshold: DefaultThreshold,
	}
}
