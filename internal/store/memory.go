package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/analysis"
)

// Memory is an in-memory Store and Ranker for tests and single-process
// experiments.
type Memory struct {
	mu       sync.Mutex
	projects map[string]Project
	pages    []Page // insertion order is creation order
	images   map[string][]byte
	analyses map[string]*analysis.Result
	rows     map[string][]RankedRow // keyed by project id
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		projects: make(map[string]Project),
		images:   make(map[string][]byte),
		analyses: make(map[string]*analysis.Result),
		rows:     make(map[string][]RankedRow),
	}
}

// AddProject registers a project.
func (m *Memory) AddProject(p Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

// RemoveProject deletes a project, simulating it vanishing mid-run.
func (m *Memory) RemoveProject(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
}

// AddPage registers a page with its rendered image.
func (m *Memory) AddPage(p Page, image []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append(m.pages, p)
	m.images[p.ID] = image
}

// AddRankedRows seeds the fused-ranking result set for a project.
func (m *Memory) AddRankedRows(projectID string, rows ...RankedRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[projectID] = append(m.rows[projectID], rows...)
}

// Analysis returns the stored analysis for a page, if any.
func (m *Memory) Analysis(pageID string) (*analysis.Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.analyses[pageID]
	return res, ok
}

// Project returns a project by id, or ErrNotFound.
func (m *Memory) Project(ctx context.Context, id string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

// ListPages returns the project's pages in creation order.
func (m *Memory) ListPages(ctx context.Context, projectID string) ([]Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Page
	for _, p := range m.pages {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	return out, nil
}

// PageImage returns the page's image bytes.
func (m *Memory) PageImage(ctx context.Context, pageID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[pageID]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", pageID, ErrNotFound)
	}
	return img, nil
}

// SaveAnalysis replaces the page's analysis record.
func (m *Memory) SaveAnalysis(ctx context.Context, pageID string, res *analysis.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[pageID] = res
	return nil
}

// AnalyzedPages returns page ids with stored analyses.
func (m *Memory) AnalyzedPages(ctx context.Context, projectID string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	done := make(map[string]bool)
	for _, p := range m.pages {
		if p.ProjectID == projectID {
			if _, ok := m.analyses[p.ID]; ok {
				done[p.ID] = true
			}
		}
	}
	return done, nil
}

// Rank filters the seeded rows the way the database function would: by
// project, optional discipline, descending score, limited to matchCount.
// Seeded scores stand in for the fused score.
func (m *Memory) Rank(ctx context.Context, queryText string, embedding []float32, projectID, discipline string, matchCount int) ([]RankedRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []RankedRow
	for _, r := range m.rows[projectID] {
		if discipline != "" && !strings.EqualFold(r.Discipline, discipline) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if matchCount > 0 && len(out) > matchCount {
		out = out[:matchCount]
	}
	return out, nil
}
