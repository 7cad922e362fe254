package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/analysis"
)

// PostgresConfig configures the database connection.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// Postgres implements Store and Ranker against the relational schema. The
// schema and its migrations are owned elsewhere; this layer only reads and
// writes the agreed columns.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool with pgvector types registered.
func OpenPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "maestro"
	pc.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("connected to database")
	return &Postgres{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Project returns a project by id, or ErrNotFound.
func (p *Postgres) Project(ctx context.Context, id string) (*Project, error) {
	var proj Project
	err := p.pool.QueryRow(ctx,
		`SELECT id::text, name FROM projects WHERE id::text = $1`, id,
	).Scan(&proj.ID, &proj.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &proj, nil
}

// ListPages returns the project's pages in creation order.
func (p *Postgres) ListPages(ctx context.Context, projectID string) ([]Page, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, project_id::text, name, COALESCE(discipline, ''), created_at
		FROM pages
		WHERE project_id::text = $1
		ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var pg Page
		if err := rows.Scan(&pg.ID, &pg.ProjectID, &pg.Name, &pg.Discipline, &pg.CreatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, pg)
	}
	return pages, rows.Err()
}

// PageImage returns the rendered image bytes for a page.
func (p *Postgres) PageImage(ctx context.Context, pageID string) ([]byte, error) {
	var img []byte
	err := p.pool.QueryRow(ctx,
		`SELECT image FROM pages WHERE id::text = $1`, pageID,
	).Scan(&img)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", pageID, ErrNotFound)
	}
	return img, err
}

// SaveAnalysis replaces the page's analysis record.
func (p *Postgres) SaveAnalysis(ctx context.Context, pageID string, res *analysis.Result) error {
	doc, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO page_analyses (page_id, result, analyzed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (page_id) DO UPDATE SET result = $2, analyzed_at = now()`,
		pageID, doc)
	return err
}

// AnalyzedPages returns the page ids of the project that already have an
// analysis record.
func (p *Postgres) AnalyzedPages(ctx context.Context, projectID string) (map[string]bool, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT a.page_id::text
		FROM page_analyses a
		JOIN pages pg ON pg.id = a.page_id
		WHERE pg.project_id::text = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = true
	}
	return done, rows.Err()
}

// Rank executes the server-side fused ranking function. Vector similarity
// and keyword relevance are combined inside hybrid_search_pointers so the
// fusion weighting and tie-breaking live in one place.
func (p *Postgres) Rank(ctx context.Context, queryText string, embedding []float32, projectID, discipline string, matchCount int) ([]RankedRow, error) {
	var disciplineArg any
	if discipline != "" {
		disciplineArg = discipline
	}

	rows, err := p.pool.Query(ctx, `
		SELECT pointer_id::text, title, page_id::text, page_name,
		       COALESCE(discipline, ''), relevance_snippet, score
		FROM hybrid_search_pointers($1, $2, $3, $4, $5)`,
		queryText, pgvector.NewVector(embedding), projectID, disciplineArg, matchCount)
	if err != nil {
		return nil, fmt.Errorf("ranking query: %w", err)
	}
	defer rows.Close()

	var out []RankedRow
	for rows.Next() {
		var r RankedRow
		if err := rows.Scan(&r.PointerID, &r.Title, &r.PageID, &r.PageName, &r.Discipline, &r.Snippet, &r.Score); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
