// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadedEnvFile records which .env file, if any, the last Load picked up.
var LoadedEnvFile string

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml and
// applies environment overrides.
func Load() (*Config, error) {
	LoadedEnvFile = loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	LoadedEnvFile = loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)
	return v
}

// bindEnvKeys makes AutomaticEnv visible to Unmarshal for keys absent from the YAML.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"database.postgres.password",
		"database.redis.password",
		"database.elasticsearch.password",
		"apis.reasoning.api_key",
		"apis.embedding.api_key",
		"notifications.sns.topic_arn",
		"risk.model_path",
	} {
		_ = v.BindEnv(key)
	}
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// Unset variables expand to "" so defaults and env fallbacks apply.
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from the conventional variable names.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.APIs.Reasoning.APIKey, "OPENAI_API_KEY", "REASONING_API_KEY")
	setIfEmpty(&cfg.APIs.Embedding.APIKey, "OPENAI_API_KEY", "EMBEDDING_API_KEY")
	if cfg.APIs.Embedding.APIKey == "" {
		cfg.APIs.Embedding.APIKey = cfg.APIs.Reasoning.APIKey
	}
	if cfg.APIs.Embedding.BaseURL == "" {
		cfg.APIs.Embedding.BaseURL = cfg.APIs.Reasoning.BaseURL
	}

	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Notifications.AWS.Region, "AWS_REGION")
}

func setIfEmpty(field *string, envKeys ...string) {
	if *field != "" {
		return
	}
	for _, k := range envKeys {
		if val := os.Getenv(k); val != "" {
			*field = val
			return
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "clinical-decision-pipeline"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.MigrationsPath == "" {
		cfg.Database.Postgres.MigrationsPath = "migrations"
	}
	if cfg.Database.Elasticsearch.ChunkIndex == "" {
		cfg.Database.Elasticsearch.ChunkIndex = "stw-chunks"
	}

	if cfg.APIs.Reasoning.Model == "" {
		cfg.APIs.Reasoning.Model = "gpt-4o-mini"
	}
	if cfg.APIs.Reasoning.Timeout == 0 {
		cfg.APIs.Reasoning.Timeout = 60000
	}
	if cfg.APIs.Reasoning.MaxRetries == 0 {
		cfg.APIs.Reasoning.MaxRetries = 2
	}
	if cfg.APIs.Reasoning.MaxTokens == 0 {
		cfg.APIs.Reasoning.MaxTokens = 2048
	}
	if cfg.APIs.Reasoning.Temperature == 0 {
		cfg.APIs.Reasoning.Temperature = 0.3
	}
	if cfg.APIs.Embedding.Model == "" {
		cfg.APIs.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.APIs.Embedding.Timeout == 0 {
		cfg.APIs.Embedding.Timeout = 30000
	}
	if cfg.APIs.Embedding.MaxRetries == 0 {
		cfg.APIs.Embedding.MaxRetries = 2
	}

	if cfg.Risk.Threshold == 0 {
		cfg.Risk.Threshold = 0.6
	}

	if cfg.Knowledge.ArtifactBackend == "" {
		cfg.Knowledge.ArtifactBackend = "file"
	}
	if cfg.Knowledge.IndexDir == "" {
		cfg.Knowledge.IndexDir = "data/vector_store"
	}
	if cfg.Knowledge.TopK == 0 {
		cfg.Knowledge.TopK = 5
	}
	if cfg.Knowledge.BatchSize == 0 {
		cfg.Knowledge.BatchSize = 10
	}
	if cfg.Knowledge.ChunkSize == 0 {
		cfg.Knowledge.ChunkSize = 500
	}
	if cfg.Knowledge.ChunkOverlap == 0 {
		cfg.Knowledge.ChunkOverlap = 50
	}
	if cfg.Knowledge.QueryCacheTTL == 0 {
		cfg.Knowledge.QueryCacheTTL = 3600000
	}

	if cfg.Triage.SessionBackend == "" {
		cfg.Triage.SessionBackend = "memory"
	}
	if cfg.Triage.SessionTTL == 0 {
		cfg.Triage.SessionTTL = 7200000
	}
	if cfg.Triage.SweepInterval == 0 {
		cfg.Triage.SweepInterval = 60000
	}
	if cfg.Triage.GroundingPassages == 0 {
		cfg.Triage.GroundingPassages = 3
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig checks that every enabled backend has what it needs.
func validateConfig(cfg *Config) error {
	if cfg.Risk.Threshold <= 0 || cfg.Risk.Threshold >= 1 {
		return fmt.Errorf("risk.threshold must be in (0,1), got %v", cfg.Risk.Threshold)
	}

	switch cfg.Knowledge.ArtifactBackend {
	case "file":
		if cfg.Knowledge.IndexDir == "" {
			return fmt.Errorf("knowledge.index_dir is required for the file backend")
		}
	case "postgres":
		if !cfg.Database.Postgres.Enabled {
			return fmt.Errorf("knowledge.artifact_backend=postgres requires database.postgres.enabled")
		}
	default:
		return fmt.Errorf("unknown knowledge.artifact_backend %q", cfg.Knowledge.ArtifactBackend)
	}
	if cfg.Knowledge.ChunkOverlap >= cfg.Knowledge.ChunkSize {
		return fmt.Errorf("knowledge.chunk_overlap must be smaller than knowledge.chunk_size")
	}

	switch cfg.Triage.SessionBackend {
	case "memory":
	case "redis":
		if !cfg.Database.Redis.Enabled {
			return fmt.Errorf("triage.session_backend=redis requires database.redis.enabled")
		}
	default:
		return fmt.Errorf("unknown triage.session_backend %q", cfg.Triage.SessionBackend)
	}

	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}
	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Database.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.GetAddresses()) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}
	if cfg.Knowledge.KeywordSearch && !cfg.Database.Elasticsearch.Enabled {
		return fmt.Errorf("knowledge.keyword_search requires database.elasticsearch.enabled")
	}

	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	if cfg.Notifications.SES.Enabled {
		if cfg.Notifications.SES.FromEmail == "" || len(cfg.Notifications.SES.ToEmails) == 0 {
			return fmt.Errorf("notifications.ses.from_email and to_emails are required when ses is enabled")
		}
	}
	if (cfg.Notifications.SNS.Enabled || cfg.Notifications.SES.Enabled) && cfg.Notifications.AWS.Region == "" {
		return fmt.Errorf("notifications.aws.region is required for escalation alerts")
	}

	if cfg.Tracing.Enabled && cfg.Tracing.JaegerEndpoint == "" {
		return fmt.Errorf("tracing.jaeger_endpoint is required when tracing is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
