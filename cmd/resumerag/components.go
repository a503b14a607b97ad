package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"resumerag/internal/chunker"
	"resumerag/internal/config"
	"resumerag/internal/domain"
	"resumerag/internal/embedding/hash"
	"resumerag/internal/embedding/openai"
	"resumerag/internal/jobs"
	"resumerag/internal/logger"
	"resumerag/internal/redact"
	"resumerag/internal/service"
	"resumerag/internal/skills"
	"resumerag/internal/skills/gemini"
	"resumerag/internal/skills/ollama"
	"resumerag/internal/uploads"
	"resumerag/internal/vectorstore/memory"
	"resumerag/internal/vectorstore/qdrant"
	"resumerag/internal/vectorstore/sqlite"
)

// app bundles the assembled components a command works with.
type app struct {
	cfg     *config.AppConfig
	log     *zap.Logger
	svc     *service.Service
	index   domain.VectorStore
	uploads *uploads.Dir
}

func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		a.log.Warn("closing index", zap.Error(err))
	}
	_ = a.log.Sync()
}

// buildApp assembles every component from configuration.
func buildApp(ctx context.Context) (*app, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(jsonLogs, debugMode)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	index, err := buildIndex(cfg)
	if err != nil {
		return nil, err
	}
	extractor, err := buildExtractor(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	analyzer, err := redact.NewAnalyzer(cfg.Redactor.Locale)
	if err != nil {
		return nil, err
	}
	uploadDir, err := uploads.NewDir(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	svc := service.New(service.Deps{
		Chunker:   chunker.NewRecursiveChunker(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap),
		Embedder:  emb,
		Index:     index,
		Extractor: extractor,
		Redactor:  analyzer,
		Jobs:      jobs.NewStore(),
		Uploads:   uploadDir,
		Logger:    log,
	}, cfg.EmbedWorkers)

	return &app{cfg: cfg, log: log, svc: svc, index: index, uploads: uploadDir}, nil
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hash", "":
		return hash.NewEmbedder(cfg.Embedder.Dimension)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func buildIndex(cfg *config.AppConfig) (domain.VectorStore, error) {
	switch cfg.Index.Type {
	case "sqlite", "":
		return sqlite.NewStore(cfg.Index.DataDir)
	case "memory":
		return memory.NewStore(), nil
	case "qdrant":
		if cfg.Index.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStore(qdrant.Config{
			URL:        cfg.Index.Qdrant.URL,
			APIKey:     cfg.Index.Qdrant.APIKey,
			Collection: cfg.Index.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Index.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown index: %s", cfg.Index.Type)
	}
}

func buildExtractor(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (domain.SkillExtractor, error) {
	timeout := time.Duration(cfg.Extractor.TimeoutSecs) * time.Second

	var generator skills.TextGenerator
	switch cfg.Extractor.Type {
	case "gemini", "":
		if cfg.Extractor.Gemini == nil {
			return nil, fmt.Errorf("gemini extractor config missing")
		}
		apiKey := os.Getenv(cfg.Extractor.Gemini.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("environment variable %s is not set", cfg.Extractor.Gemini.APIKeyEnv)
		}
		g, err := gemini.NewGenerator(ctx, apiKey, cfg.Extractor.Gemini.Model)
		if err != nil {
			return nil, err
		}
		generator = g
	case "ollama":
		if cfg.Extractor.Ollama == nil {
			return nil, fmt.Errorf("ollama extractor config missing")
		}
		generator = ollama.NewGenerator(ollama.Config{
			BaseURL: cfg.Extractor.Ollama.BaseURL,
			Model:   cfg.Extractor.Ollama.Model,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unknown extractor: %s", cfg.Extractor.Type)
	}

	return skills.NewExtractor(generator, log, timeout, cfg.Extractor.MaxTokens), nil
}
