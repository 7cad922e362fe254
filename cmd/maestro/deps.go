package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/backoff"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/config"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/providers"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/store"
)

// deps bundles the shared wiring for commands that need the full stack.
type deps struct {
	cfg    *config.Config
	db     *store.Postgres
	openai *providers.OpenAIClient
}

func buildDeps(ctx context.Context) (*deps, error) {
	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := cm.Get()

	db, err := store.OpenPostgres(ctx, store.PostgresConfig{
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
	}, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	openai, err := providers.NewOpenAIClient(providers.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		VisionModel: cfg.OpenAI.VisionModel,
		EmbedModel:  cfg.OpenAI.EmbedModel,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &deps{cfg: cfg, db: db, openai: openai}, nil
}

func (d *deps) retryConfig() backoff.Config {
	return backoff.Config{
		MaxAttempts: d.cfg.Pipeline.MaxAttempts,
		BaseDelay:   d.cfg.Pipeline.BaseDelay,
		MaxDelay:    d.cfg.Pipeline.MaxDelay,
	}
}

func (d *deps) close() {
	d.db.Close()
}
