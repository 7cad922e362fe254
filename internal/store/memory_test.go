package store

import (
	"context"
	"errors"
	"testing"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/analysis"
)

func TestMemoryProjectNotFound(t *testing.T) {
	m := NewMemory()
	if _, err := m.Project(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Project() error = %v, want ErrNotFound", err)
	}
	if _, err := m.PageImage(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("PageImage() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryListPagesPreservesOrder(t *testing.T) {
	m := NewMemory()
	m.AddProject(Project{ID: "proj", Name: "Tower"})
	m.AddPage(Page{ID: "p3", ProjectID: "proj", Name: "A-301"}, nil)
	m.AddPage(Page{ID: "p1", ProjectID: "proj", Name: "A-101"}, nil)
	m.AddPage(Page{ID: "px", ProjectID: "other", Name: "S-001"}, nil)
	m.AddPage(Page{ID: "p2", ProjectID: "proj", Name: "A-201"}, nil)

	pages, err := m.ListPages(context.Background(), "proj")
	if err != nil {
		t.Fatalf("ListPages() error = %v", err)
	}
	want := []string{"p3", "p1", "p2"}
	if len(pages) != len(want) {
		t.Fatalf("ListPages() returned %d pages, want %d", len(pages), len(want))
	}
	for i, id := range want {
		if pages[i].ID != id {
			t.Errorf("pages[%d].ID = %q, want %q", i, pages[i].ID, id)
		}
	}
}

func TestMemorySaveAnalysisReplacesWhole(t *testing.T) {
	m := NewMemory()
	m.AddProject(Project{ID: "proj"})
	m.AddPage(Page{ID: "p1", ProjectID: "proj"}, []byte("img"))

	ctx := context.Background()
	first := &analysis.Result{PageType: "floor_plan", SheetReflection: "old"}
	if err := m.SaveAnalysis(ctx, "p1", first); err != nil {
		t.Fatalf("SaveAnalysis() error = %v", err)
	}
	second := &analysis.Result{PageType: "detail"}
	if err := m.SaveAnalysis(ctx, "p1", second); err != nil {
		t.Fatalf("SaveAnalysis() error = %v", err)
	}

	got, ok := m.Analysis("p1")
	if !ok {
		t.Fatal("Analysis() not found after save")
	}
	if got.PageType != "detail" || got.SheetReflection != "" {
		t.Errorf("Analysis() = %+v, want replaced record, not merged", got)
	}

	done, err := m.AnalyzedPages(ctx, "proj")
	if err != nil {
		t.Fatalf("AnalyzedPages() error = %v", err)
	}
	if !done["p1"] || len(done) != 1 {
		t.Errorf("AnalyzedPages() = %v, want {p1: true}", done)
	}
}

func TestMemoryRankFiltersAndLimits(t *testing.T) {
	m := NewMemory()
	m.AddRankedRows("proj",
		RankedRow{PointerID: "a", Discipline: "Mechanical", Score: 0.4},
		RankedRow{PointerID: "b", Discipline: "mechanical", Score: 0.9},
		RankedRow{PointerID: "c", Discipline: "electrical", Score: 0.7},
	)

	rows, err := m.Rank(context.Background(), "damper", nil, "proj", "MECHANICAL", 1)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(rows) != 1 || rows[0].PointerID != "b" {
		t.Fatalf("Rank() = %+v, want single top mechanical row b", rows)
	}

	rows, err = m.Rank(context.Background(), "damper", nil, "unknown", "", 10)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Rank() for unknown project = %+v, want empty", rows)
	}
}
