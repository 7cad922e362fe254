// Package analysis runs one page through the vision comprehension step
// ("brain mode") and produces the persisted analysis record.
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/backoff"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/geometry"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/providers"
)

// ErrBadImage marks an undecodable page image. Input-validation failures
// are never retried.
var ErrBadImage = errors.New("undecodable page image")

// PageMeta identifies the page being analyzed.
type PageMeta struct {
	ID         string
	Name       string
	Discipline string
}

// Region is one structural bounding box detected on a page, tagged with a
// semantic type. Regions are fully replaced on re-analysis, never merged.
type Region struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Box          geometry.Box `json:"bbox"`
	Label        string       `json:"label"`
	Confidence   float64      `json:"confidence"`
	DetailNumber string       `json:"detail_number,omitempty"`
}

// Result is the complete analysis record for one page.
type Result struct {
	Regions         []Region `json:"regions"`
	SheetReflection string   `json:"sheet_reflection"`
	PageType        string   `json:"page_type"`
	CrossReferences []string `json:"cross_references"`
}

// Config configures an Analyzer.
type Config struct {
	Vision  providers.VisionProvider
	Limiter *providers.RateLimiter // optional
	Retry   backoff.Config
	Logger  *slog.Logger
}

// Analyzer drives the per-page comprehension step: vision call under
// backoff, then defensive coercion of the raw payload.
type Analyzer struct {
	vision  providers.VisionProvider
	limiter *providers.RateLimiter
	retry   backoff.Config
	logger  *slog.Logger
}

// New creates an Analyzer.
func New(cfg Config) *Analyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		vision:  cfg.Vision,
		limiter: cfg.Limiter,
		retry:   cfg.Retry,
		logger:  logger.With("component", "analyzer"),
	}
}

// Analyze runs one page image through the vision provider and returns the
// coerced analysis record. The same image, metadata and a deterministic
// provider yield an identical Result.
func (a *Analyzer) Analyze(ctx context.Context, img []byte, meta PageMeta) (*Result, error) {
	dims, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadImage, meta.Name, err)
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	raw, err := backoff.DoValue(ctx, a.retry, func(ctx context.Context) ([]byte, error) {
		return a.vision.Analyze(ctx, img, meta.Name, meta.Discipline)
	})
	elapsed := time.Since(start)
	if err != nil {
		a.logger.Warn("vision analysis failed",
			"page", meta.Name, "elapsed", elapsed, "error", err)
		return nil, fmt.Errorf("analyze page %s: %w", meta.Name, err)
	}

	a.logger.Debug("vision analysis complete",
		"page", meta.Name,
		"elapsed", elapsed,
		"image_px", fmt.Sprintf("%dx%d", dims.Width, dims.Height),
	)

	return coerceResult(raw, float64(dims.Width), float64(dims.Height)), nil
}
