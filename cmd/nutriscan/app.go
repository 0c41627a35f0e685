package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vbonduro/nutriscan/internal/analysis"
	"github.com/vbonduro/nutriscan/internal/analysis/claude"
	"github.com/vbonduro/nutriscan/internal/analysis/gemini"
	"github.com/vbonduro/nutriscan/internal/cache"
	"github.com/vbonduro/nutriscan/internal/config"
	"github.com/vbonduro/nutriscan/internal/db"
	"github.com/vbonduro/nutriscan/internal/imageprep"
	"github.com/vbonduro/nutriscan/internal/logging"
	"github.com/vbonduro/nutriscan/internal/lookup"
	"github.com/vbonduro/nutriscan/internal/media"
	"github.com/vbonduro/nutriscan/internal/mediastore/local"
	"github.com/vbonduro/nutriscan/internal/service"
	"github.com/vbonduro/nutriscan/internal/store"
)

// app holds the wired services for one command run.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	database *sql.DB
	analysis *service.AnalysisService
	history  *service.HistoryService
	media    *service.MediaService
	closers  []func()
}

// newApp loads config and wires services. History-only commands pass
// withAnalysis false so they work without provider credentials.
func newApp(ctx context.Context, configFile string, withAnalysis bool) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, closers: []func(){cleanup}}

	a.database, err = db.Open(cfg.DBPath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := a.database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	})
	a.history = service.NewHistoryService(store.NewHistoryStore(a.database, cfg.HistoryLimit, logger), logger)
	if !withAnalysis {
		return a, nil
	}

	generator, policy, err := a.newGenerator(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	resultCache, err := cache.New(cfg.CacheTTL, cfg.CacheSize)
	if err != nil {
		a.close()
		return nil, err
	}

	a.analysis = service.NewAnalysisService(
		lookup.Default(),
		resultCache,
		imageprep.NewPreprocessor(nil, logger),
		analysis.NewBuilder(policy, cfg.AnalysisTemperature),
		generator,
		logger,
	)

	if cfg.GeminiAPIKey != "" {
		mediaStore, err := local.NewLocalMediaStore(cfg.MediaPath, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize media store: %w", err)
		}
		client := media.New(media.Config{
			APIKey:       cfg.GeminiAPIKey,
			BaseURL:      cfg.GeminiBaseURL,
			SpeechModel:  cfg.SpeechModel,
			Voice:        cfg.SpeechVoice,
			ImageModel:   cfg.ImageEditModel,
			VideoModel:   cfg.VideoModel,
			PollInterval: cfg.VideoPollInterval,
			MaxWait:      cfg.VideoMaxWait,
		}, media.WithLogger(logger))
		a.media = service.NewMediaService(client, mediaStore, logger)
	} else {
		logger.Warn("GEMINI_API_KEY not set, media generation disabled")
	}
	return a, nil
}

func (a *app) newGenerator(ctx context.Context) (analysis.Generator, analysis.ModelPolicy, error) {
	cfg := a.cfg
	switch cfg.AnalysisBackend {
	case config.BackendClaude:
		if cfg.ClaudeAPIKey == "" {
			return nil, nil, errors.New("CLAUDE_API_KEY is required when ANALYSIS_BACKEND=claude")
		}
		a.logger.Info("using Claude analysis backend", "model", cfg.ClaudeModel)
		policy := analysis.StaticPolicy{ImageModel: cfg.ClaudeModel, TextModel: cfg.ClaudeModel}
		return claude.New(cfg.ClaudeAPIKey, cfg.ClaudeModel, "", a.logger), policy, nil
	default:
		if cfg.GeminiAPIKey == "" {
			return nil, nil, errors.New("GEMINI_API_KEY is required when ANALYSIS_BACKEND=gemini")
		}
		gen, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL, a.logger)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() {
			if err := gen.Close(); err != nil {
				a.logger.Error("failed to close gemini client", "error", err)
			}
		})
		a.logger.Info("using Gemini analysis backend", "image_model", cfg.AnalysisImageModel, "text_model", cfg.AnalysisTextModel)
		policy := analysis.StaticPolicy{ImageModel: cfg.AnalysisImageModel, TextModel: cfg.AnalysisTextModel}
		return gen, policy, nil
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
