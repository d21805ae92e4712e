// internal/pipeline/clinical-triage/config.go
package clinicaltriage

import "time"

type Config struct {
	SessionTTL        time.Duration
	GroundingPassages int
	Temperature       float32
	MaxTokens         int
	ReasoningTimeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		SessionTTL:        2 * time.Hour,
		GroundingPassages: 3,
		Temperature:       0.3,
		MaxTokens:         2048,
		ReasoningTimeout:  60 * time.Second,
	}
}
