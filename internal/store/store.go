// Package store defines the persistence contract the pipeline core depends
// on, with a Postgres implementation for production and an in-memory
// implementation for tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/analysis"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Project is one drawing set.
type Project struct {
	ID   string
	Name string
}

// Page is one rasterized sheet of a drawing set.
type Page struct {
	ID         string
	ProjectID  string
	Name       string
	Discipline string
	CreatedAt  time.Time
}

// Store is the page/analysis persistence surface used by the orchestrator.
type Store interface {
	// Project returns a project by id, or ErrNotFound.
	Project(ctx context.Context, id string) (*Project, error)

	// ListPages returns the project's pages in creation order. The
	// orchestrator relies on this order being stable across calls.
	ListPages(ctx context.Context, projectID string) ([]Page, error)

	// PageImage returns the rendered image bytes for a page.
	PageImage(ctx context.Context, pageID string) ([]byte, error)

	// SaveAnalysis replaces the page's analysis record. Results are
	// replaced whole, never merged.
	SaveAnalysis(ctx context.Context, pageID string, res *analysis.Result) error

	// AnalyzedPages returns the set of page ids that already carry an
	// analysis record.
	AnalyzedPages(ctx context.Context, projectID string) (map[string]bool, error)
}

// RankedRow is one row from the fused ranking query.
type RankedRow struct {
	PointerID  string
	Title      string
	PageID     string
	PageName   string
	Discipline string
	Snippet    string
	Score      float64
}

// Ranker executes the server-side fused ranking over a project's indexed
// content. The fusion formula lives in the database function; this
// signature and the column contract are load-bearing.
type Ranker interface {
	Rank(ctx context.Context, queryText string, embedding []float32, projectID, discipline string, matchCount int) ([]RankedRow, error)
}
