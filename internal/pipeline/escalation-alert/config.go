// internal/pipeline/escalation-alert/config.go
package escalationalert

import "time"

type Config struct {
	SNSEnabled bool
	TopicARN   string
	SESEnabled bool
	FromEmail  string
	ToEmails   []string
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
