// cmd/pipeline-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"clinical-decision-pipeline/internal/api"
	"clinical-decision-pipeline/internal/common/aws"
	"clinical-decision-pipeline/internal/common/config"
	"clinical-decision-pipeline/internal/common/database"
	"clinical-decision-pipeline/internal/common/genai"
	"clinical-decision-pipeline/internal/common/logger"
	"clinical-decision-pipeline/internal/common/observability"

	ct "clinical-decision-pipeline/internal/pipeline/clinical-triage"
	ea "clinical-decision-pipeline/internal/pipeline/escalation-alert"
	ks "clinical-decision-pipeline/internal/pipeline/knowledge-store"
	ol "clinical-decision-pipeline/internal/pipeline/ontology-lookup"
	rs "clinical-decision-pipeline/internal/pipeline/risk-scoring"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// redisOrNil returns the shared client, or nil when Redis is disabled.
func redisOrNil(c *database.RedisClient) *redis.Client {
	if c == nil {
		return nil
	}
	return c.Client
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting clinical decision pipeline...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("envFile", config.LoadedEnvFile),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	tracing, err := observability.NewTracing(cfg.App.Name, cfg.App.Version, cfg.Tracing.Enabled, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		zapLog.Warn("tracing disabled", zap.Error(err))
		tracing = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var readiness []api.ReadinessCheck

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	if cfg.Database.Postgres.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")

		applied, err := database.Migrate(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Migrations checked", zap.Bool("applied", applied))

		readiness = append(readiness, api.ReadinessCheck{Name: "postgres", Check: pg.Ping})
	}

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
		readiness = append(readiness, api.ReadinessCheck{Name: "elasticsearch", Check: esClient.Ping})
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	if cfg.Database.Redis.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")
		readiness = append(readiness, api.ReadinessCheck{Name: "redis", Check: rdb.Ping})
	}

	// --- Reasoning and embedding services ---
	reasoner := genai.NewOpenAIReasoner(genai.Options{
		BaseURL:    cfg.APIs.Reasoning.BaseURL,
		APIKey:     cfg.APIs.Reasoning.APIKey,
		Model:      cfg.APIs.Reasoning.Model,
		Timeout:    config.GetDuration(cfg.APIs.Reasoning.Timeout),
		MaxRetries: cfg.APIs.Reasoning.MaxRetries,
	})
	embedder := genai.NewOpenAIEmbedder(genai.Options{
		BaseURL:    cfg.APIs.Embedding.BaseURL,
		APIKey:     cfg.APIs.Embedding.APIKey,
		Model:      cfg.APIs.Embedding.Model,
		Timeout:    config.GetDuration(cfg.APIs.Embedding.Timeout),
		MaxRetries: cfg.APIs.Embedding.MaxRetries,
	})

	ontology := ol.Default()

	// --- Risk scoring ---
	var classifier rs.Classifier
	if cfg.Risk.ModelPath != "" {
		c, err := rs.LoadClassifier(cfg.Risk.ModelPath)
		if err != nil {
			zapLog.Warn("risk classifier unavailable, using rule model",
				zap.String("modelPath", cfg.Risk.ModelPath), zap.Error(err))
		} else {
			classifier = c
			zapLog.Info("Risk classifier loaded", zap.String("model", c.Name), zap.String("version", c.Version))
		}
	}
	riskHandler := rs.NewHandler(&rs.Config{
		Threshold: cfg.Risk.Threshold,
		ModelPath: cfg.Risk.ModelPath,
	}, classifier, ontology, log)

	// --- Knowledge store ---
	var artifacts ks.ArtifactStore
	switch cfg.Knowledge.ArtifactBackend {
	case ks.BackendPostgres:
		artifacts = ks.NewPostgresArtifacts(pg.DB)
	default:
		artifacts = ks.NewFileArtifacts(cfg.Knowledge.IndexDir)
	}

	var keyword ks.KeywordIndex
	if cfg.Knowledge.KeywordSearch && esClient != nil {
		keyword = ks.NewElasticKeywordIndex(esClient.Client, cfg.Database.Elasticsearch.ChunkIndex)
	}

	knowledgeCfg := &ks.Config{
		IndexDir:       cfg.Knowledge.IndexDir,
		TopK:           cfg.Knowledge.TopK,
		BatchSize:      cfg.Knowledge.BatchSize,
		ChunkSize:      cfg.Knowledge.ChunkSize,
		ChunkOverlap:   cfg.Knowledge.ChunkOverlap,
		QueryCacheTTL:  config.GetDuration(cfg.Knowledge.QueryCacheTTL),
		EmbeddingModel: cfg.APIs.Embedding.Model,
	}
	store := ks.NewStore(knowledgeCfg, embedder, artifacts, keyword, redisOrNil(rdb), log).WithTracing(tracing)

	if err := store.Load(ctx); err != nil {
		if errors.Is(err, ks.ErrArtifactsNotFound) {
			zapLog.Warn("no knowledge index found, retrieval will serve the fallback passage",
				zap.String("backend", artifacts.Backend()))
		} else {
			zapLog.Error("knowledge index load failed", zap.Error(err))
		}
	} else {
		st := store.Stats()
		zapLog.Info("Knowledge index loaded",
			zap.Int("chunks", st.TotalChunks),
			zap.Int("sources", st.UniqueSources),
			zap.String("generation", st.Generation),
		)
	}

	if cfg.Knowledge.Watch {
		go func() {
			if err := store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLog.Warn("index watcher stopped", zap.Error(err))
			}
		}()
	}

	// --- Triage sessions ---
	var sessions ct.SessionStore
	sessionTTL := config.GetDuration(cfg.Triage.SessionTTL)
	switch cfg.Triage.SessionBackend {
	case "redis":
		sessions = ct.NewRedisStore(rdb.Client, sessionTTL)
	default:
		mem := ct.NewMemoryStore(sessionTTL)
		go mem.RunSweeper(ctx, config.GetDuration(cfg.Triage.SweepInterval), func(evicted int) {
			zapLog.Debug("expired triage sessions swept", zap.Int("evicted", evicted))
		})
		sessions = mem
	}

	triageCfg := ct.LoadConfig()
	triageCfg.SessionTTL = sessionTTL
	triageCfg.GroundingPassages = cfg.Triage.GroundingPassages
	triageCfg.Temperature = float32(cfg.APIs.Reasoning.Temperature)
	triageCfg.MaxTokens = cfg.APIs.Reasoning.MaxTokens
	triageCfg.ReasoningTimeout = config.GetDuration(cfg.APIs.Reasoning.Timeout)
	triage := ct.NewService(triageCfg, sessions, store, reasoner, log).WithTracing(tracing)

	// --- Escalation alerts ---
	var (
		snsClient ea.SNSService
		sesClient ea.SESService
	)
	if cfg.Notifications.SNS.Enabled {
		c, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("sns client unavailable", zap.Error(err))
		} else {
			snsClient = c
		}
	}
	if cfg.Notifications.SES.Enabled {
		c, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("ses client unavailable", zap.Error(err))
		} else {
			sesClient = c
		}
	}
	escalation := ea.NewHandler(&ea.Config{
		SNSEnabled: cfg.Notifications.SNS.Enabled,
		TopicARN:   cfg.Notifications.SNS.TopicARN,
		SESEnabled: cfg.Notifications.SES.Enabled,
		FromEmail:  cfg.Notifications.SES.FromEmail,
		ToEmails:   cfg.Notifications.SES.ToEmails,
		Timeout:    10 * time.Second,
	}, snsClient, sesClient, log)

	// --- HTTP server ---
	server := api.NewServer(&api.Config{
		RequestTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		MaxBodyBytes:   10 << 20,
		DefaultTopK:    cfg.Knowledge.TopK,
		Version:        cfg.App.Version,
	}, api.Dependencies{
		Risk:          riskHandler,
		Knowledge:     store,
		Triage:        triage,
		Escalation:    escalation,
		Ontology:      ontology,
		Chunker:       ks.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap),
		Observability: obs,
		Readiness:     readiness,
	}, log)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout) + 5*time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	cancel()

	if err := tracing.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down tracing", zap.Error(err))
	}

	zapLog.Info("Clinical decision pipeline stopped gracefully")
}
