// cmd/tools/index-builder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"clinical-decision-pipeline/internal/common/config"
	"clinical-decision-pipeline/internal/common/database"
	"clinical-decision-pipeline/internal/common/genai"
	"clinical-decision-pipeline/internal/common/logger"

	ks "clinical-decision-pipeline/internal/pipeline/knowledge-store"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: configs/config.yaml lookup)")
	docsDir := flag.String("docs", "data/guidelines", "Directory holding extracted guideline text")
	patterns := flag.String("pattern", defaultPattern, "Comma-separated doublestar patterns, relative to -docs")
	dryRun := flag.Bool("dry-run", false, "Chunk documents and print counts without embedding")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	chunker := ks.NewChunker(cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)
	paths, chunks, err := loadDocuments(*docsDir, splitPatterns(*patterns), chunker)
	if err != nil {
		zapLog.Fatal("loading documents failed", zap.Error(err))
	}
	zapLog.Info("Documents chunked",
		zap.Int("documents", len(paths)),
		zap.Int("chunks", len(chunks)),
	)
	if *dryRun {
		for _, p := range paths {
			fmt.Println(p)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var artifacts ks.ArtifactStore
	switch cfg.Knowledge.ArtifactBackend {
	case ks.BackendPostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			zapLog.Fatal("postgres init failed", zap.Error(err))
		}
		defer pg.Close()
		if err := pg.Ping(ctx); err != nil {
			zapLog.Fatal("postgres unreachable", zap.Error(err))
		}
		if _, err := database.Migrate(cfg.Database.Postgres); err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		artifacts = ks.NewPostgresArtifacts(pg.DB)
	default:
		artifacts = ks.NewFileArtifacts(cfg.Knowledge.IndexDir)
	}

	var keyword ks.KeywordIndex
	if cfg.Knowledge.KeywordSearch {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Fatal("elasticsearch init failed", zap.Error(err))
		}
		keyword = ks.NewElasticKeywordIndex(es.Client, cfg.Database.Elasticsearch.ChunkIndex)
	}

	embedder := genai.NewOpenAIEmbedder(genai.Options{
		BaseURL:    cfg.APIs.Embedding.BaseURL,
		APIKey:     cfg.APIs.Embedding.APIKey,
		Model:      cfg.APIs.Embedding.Model,
		Timeout:    config.GetDuration(cfg.APIs.Embedding.Timeout),
		MaxRetries: cfg.APIs.Embedding.MaxRetries,
	})

	store := ks.NewStore(&ks.Config{
		IndexDir:       cfg.Knowledge.IndexDir,
		BatchSize:      cfg.Knowledge.BatchSize,
		ChunkSize:      cfg.Knowledge.ChunkSize,
		ChunkOverlap:   cfg.Knowledge.ChunkOverlap,
		EmbeddingModel: cfg.APIs.Embedding.Model,
	}, embedder, artifacts, keyword, nil, log)

	result, err := store.Ingest(ctx, chunks)
	if err != nil {
		zapLog.Fatal("ingest failed", zap.Error(err))
	}

	zapLog.Info("Index built",
		zap.String("backend", artifacts.Backend()),
		zap.String("generation", result.Generation),
		zap.Int("chunks", result.ChunkCount),
		zap.Int("dimension", result.Dimension),
		zap.Int("batches", result.Batches),
		zap.Bool("keywordMirror", result.Mirrored),
	)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(path)
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
