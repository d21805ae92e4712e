package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearSecretEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "REASONING_API_KEY", "EMBEDDING_API_KEY", "DB_USER", "DB_PASSWORD", "AWS_REGION"} {
		t.Setenv(k, "")
	}
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	clearSecretEnv(t)
	path := writeConfig(t, `
app:
  name: cdp-test
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "cdp-test", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 0.6, cfg.Risk.Threshold)
	assert.Equal(t, "file", cfg.Knowledge.ArtifactBackend)
	assert.Equal(t, 5, cfg.Knowledge.TopK)
	assert.Equal(t, 10, cfg.Knowledge.BatchSize)
	assert.Equal(t, 500, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 50, cfg.Knowledge.ChunkOverlap)
	assert.Equal(t, "memory", cfg.Triage.SessionBackend)
	assert.Equal(t, 3, cfg.Triage.GroundingPassages)
	assert.Equal(t, 0.3, cfg.APIs.Reasoning.Temperature)
	assert.Equal(t, "stw-chunks", cfg.Database.Elasticsearch.ChunkIndex)
}

func TestLoadFromFile_SecretsFromEnvironment(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DB_PASSWORD", "s3cret")
	path := writeConfig(t, `
apis:
  reasoning:
    base_url: http://llm.local/v1
database:
  postgres:
    enabled: true
    host: localhost
    database: clinical
    user: pipeline
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.APIs.Reasoning.APIKey)
	assert.Equal(t, "sk-test", cfg.APIs.Embedding.APIKey)
	assert.Equal(t, "http://llm.local/v1", cfg.APIs.Embedding.BaseURL)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("CDP_TEST_REDIS", "redis.internal:6379")
	path := writeConfig(t, `
database:
  redis:
    enabled: true
    address: ${CDP_TEST_REDIS}
triage:
  session_backend: redis
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", cfg.Database.Redis.Address)
}

func TestLoadFromFile_UnsetPlaceholderFallsBackToEnv(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv("CDP_TEST_UNSET", "")
	t.Setenv("AWS_REGION", "ap-south-1")
	path := writeConfig(t, `
apis:
  reasoning:
    base_url: ${CDP_TEST_UNSET}
notifications:
  aws:
    region: ${CDP_TEST_UNSET}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.APIs.Reasoning.BaseURL)
	assert.Equal(t, "ap-south-1", cfg.Notifications.AWS.Region)
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "redis sessions without redis",
			body: "triage:\n  session_backend: redis\n",
			want: "requires database.redis.enabled",
		},
		{
			name: "postgres artifacts without postgres",
			body: "knowledge:\n  artifact_backend: postgres\n",
			want: "requires database.postgres.enabled",
		},
		{
			name: "unknown artifact backend",
			body: "knowledge:\n  artifact_backend: s3\n",
			want: "unknown knowledge.artifact_backend",
		},
		{
			name: "threshold out of range",
			body: "risk:\n  threshold: 1.5\n",
			want: "risk.threshold",
		},
		{
			name: "keyword search without elasticsearch",
			body: "knowledge:\n  keyword_search: true\n",
			want: "requires database.elasticsearch.enabled",
		},
		{
			name: "sns without topic",
			body: "notifications:\n  aws:\n    region: eu-west-1\n  sns:\n    enabled: true\n",
			want: "topic_arn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearSecretEnv(t)
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestPostgresConfig_URLs(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", Database: "clinical", SSLMode: "disable"}

	assert.Equal(t, "host=db port=5432 user=u password=p@ss dbname=clinical sslmode=disable", p.GetDSN())
	assert.Equal(t, "postgres://u:p%40ss@db:5432/clinical?sslmode=disable", p.GetURL())
}

func TestElasticsearchConfig_GetAddresses(t *testing.T) {
	assert.Equal(t, []string{"http://a:9200"}, ElasticsearchConfig{URL: "http://a:9200"}.GetAddresses())
	assert.Equal(t, []string{"http://b:9200"}, ElasticsearchConfig{Addresses: []string{"http://b:9200"}, URL: "http://a:9200"}.GetAddresses())
	assert.Nil(t, ElasticsearchConfig{}.GetAddresses())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
