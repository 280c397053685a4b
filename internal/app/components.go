package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"designforge/internal/artifact"
	"designforge/internal/config"
	"designforge/internal/llm"
	"designforge/internal/logging"
	"designforge/internal/pipeline"
	"designforge/internal/service/design"
	"designforge/internal/store"
)

// Components is the wired dependency graph shared by the API server and the
// CLI.
type Components struct {
	Config  *config.Config
	Log     *slog.Logger
	LLM     llm.Client
	Store   store.Store
	Assets  artifact.Store
	Designs *design.Service
}

func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	logger = logging.OrDefault(logger)

	client, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.StoreDSN)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open design store: %w", err)
	}
	logger.Info("design store ready", slog.String("dsn", redactDSN(cfg.StoreDSN)))

	assets, err := newAssetStore(cfg, logger)
	if err != nil {
		_ = st.Close()
		_ = client.Close()
		return nil, err
	}

	orch := pipeline.New(client, pipeline.Options{
		APIKey:            cfg.LLM.APIKey,
		ImageAspectRatio:  cfg.Pipeline.ImageAspectRatio,
		ImageSize:         cfg.Pipeline.ImageSize,
		Voice:             cfg.Pipeline.Voice,
		VideoResolution:   cfg.Pipeline.VideoResolution,
		VideoAspectRatio:  cfg.Pipeline.VideoAspectRatio,
		VideoPollInterval: cfg.Pipeline.VideoPollInterval,
		VideoPollAttempts: cfg.Pipeline.VideoPollAttempts,
		Logger:            logger,
	})
	svc, err := design.New(orch, design.Options{Store: st, Assets: assets, Logger: logger})
	if err != nil {
		_ = st.Close()
		_ = client.Close()
		return nil, err
	}
	return &Components{
		Config:  cfg,
		Log:     logger,
		LLM:     client,
		Store:   st,
		Assets:  assets,
		Designs: svc,
	}, nil
}

func newLLMClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	var inner llm.Client
	if cfg.LLM.Fake {
		logger.Warn("using the offline fake model client")
		inner = llm.NewFakeClient()
	} else {
		if cfg.LLM.APIKey == "" {
			logger.Warn("no Gemini API key configured; every model call will fail")
		}
		g, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			TextModel:   cfg.LLM.TextModel,
			ImageModel:  cfg.LLM.ImageModel,
			SpeechModel: cfg.LLM.SpeechModel,
			VideoModel:  cfg.LLM.VideoModel,
		})
		if err != nil {
			return nil, err
		}
		inner = g
	}
	return llm.Wrap(inner,
		llm.WithLogging(logger),
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
	), nil
}

// newAssetStore returns the S3 store when configured and an in-memory store
// otherwise.
func newAssetStore(cfg *config.Config, logger *slog.Logger) (artifact.Store, error) {
	if !cfg.Artifact.Enabled {
		return artifact.NewMemoryStore(), nil
	}
	s3, err := artifact.NewS3Store(artifact.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init asset store: %w", err)
	}
	logger.Info("asset store: s3", slog.String("bucket", cfg.Artifact.Bucket), slog.String("endpoint", cfg.Artifact.Endpoint))
	return s3, nil
}

// Close stops in-flight runs, then releases the store and model client.
func (c *Components) Close() error {
	c.Designs.Close()
	return errors.Join(c.Store.Close(), c.LLM.Close())
}
