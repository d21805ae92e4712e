// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	APIs          APIsConfig         `mapstructure:"apis"`
	Risk          RiskConfig         `mapstructure:"risk"`
	Knowledge     KnowledgeConfig    `mapstructure:"knowledge"`
	Triage        TriageConfig       `mapstructure:"triage"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Tracing       TracingConfig      `mapstructure:"tracing"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// GetDSN returns the lib/pq keyword/value connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GetURL returns the postgres:// form expected by golang-migrate.
func (p PostgresConfig) GetURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=" + p.SSLMode,
	}
	return u.String()
}

type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	URL        string   `mapstructure:"url"`
	ChunkIndex string   `mapstructure:"chunk_index"`
}

// GetAddresses returns Addresses, or URL as a one-element list.
func (e ElasticsearchConfig) GetAddresses() []string {
	if len(e.Addresses) > 0 {
		return e.Addresses
	}
	if e.URL != "" {
		return []string{e.URL}
	}
	return nil
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// APIsConfig holds the OpenAI-compatible reasoning and embedding endpoints.
type APIsConfig struct {
	Reasoning ReasoningAPIConfig `mapstructure:"reasoning"`
	Embedding EmbeddingAPIConfig `mapstructure:"embedding"`
}

type ReasoningAPIConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type EmbeddingAPIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

type RiskConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	ModelPath string  `mapstructure:"model_path"`
}

type KnowledgeConfig struct {
	ArtifactBackend string `mapstructure:"artifact_backend"` // file | postgres
	IndexDir        string `mapstructure:"index_dir"`
	TopK            int    `mapstructure:"top_k"`
	BatchSize       int    `mapstructure:"batch_size"`
	ChunkSize       int    `mapstructure:"chunk_size"`
	ChunkOverlap    int    `mapstructure:"chunk_overlap"`
	KeywordSearch   bool   `mapstructure:"keyword_search"`
	QueryCacheTTL   int    `mapstructure:"query_cache_ttl"` // milliseconds
	Watch           bool   `mapstructure:"watch"`
}

type TriageConfig struct {
	SessionBackend    string `mapstructure:"session_backend"` // memory | redis
	SessionTTL        int    `mapstructure:"session_ttl"`     // milliseconds
	SweepInterval     int    `mapstructure:"sweep_interval"`  // milliseconds
	GroundingPassages int    `mapstructure:"grounding_passages"`
}

// NotificationConfig holds settings for escalation alerts.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		ToEmails  []string `mapstructure:"to_emails"`
	} `mapstructure:"ses"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
