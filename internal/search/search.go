// Package search answers free-text queries against a project's indexed
// content by fusing vector similarity with keyword relevance.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/backoff"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/providers"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/store"
)

// DefaultLimit caps result sets when the caller does not specify one.
const DefaultLimit = 10

// Result is one ranked content fragment. Produced per query, never
// persisted.
type Result struct {
	PointerID        string  `json:"pointer_id"`
	Title            string  `json:"title"`
	PageID           string  `json:"page_id"`
	PageName         string  `json:"page_name"`
	Discipline       string  `json:"discipline"`
	RelevanceSnippet string  `json:"relevance_snippet"`
	Score            float64 `json:"score"`
}

// Config configures an Engine.
type Config struct {
	Embedder providers.Embedder
	Ranker   store.Ranker
	Retry    backoff.Config
	Logger   *slog.Logger
}

// Engine embeds the query and delegates ranking to the store's fused
// ranking function, so the fusion weighting lives in one place.
type Engine struct {
	embedder providers.Embedder
	ranker   store.Ranker
	retry    backoff.Config
	logger   *slog.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		embedder: cfg.Embedder,
		ranker:   cfg.Ranker,
		retry:    cfg.Retry,
		logger:   logger.With("component", "search"),
	}
}

// Search returns up to limit results for the query, ordered by descending
// combined score. An embedding failure fails the whole query: there is no
// keyword-only fallback, so callers see one failure mode for both halves
// of the hybrid.
func (e *Engine) Search(ctx context.Context, query, projectID, discipline string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	start := time.Now()
	embedding, err := backoff.DoValue(ctx, e.retry, func(ctx context.Context) ([]float32, error) {
		return e.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := e.ranker.Rank(ctx, query, embedding, projectID, discipline, limit)
	if err != nil {
		return nil, fmt.Errorf("rank query: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, Result{
			PointerID:        r.PointerID,
			Title:            r.Title,
			PageID:           r.PageID,
			PageName:         r.PageName,
			Discipline:       r.Discipline,
			RelevanceSnippet: r.Snippet,
			Score:            r.Score,
		})
	}

	e.logger.Debug("search complete",
		"project_id", projectID,
		"results", len(results),
		"elapsed", time.Since(start),
	)
	return results, nil
}
