package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"reflect"
	"testing"
	"time"

	"github.com/seanschneidewent/Maestro-Super-sub001/internal/backoff"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/geometry"
	"github.com/seanschneidewent/Maestro-Super-sub001/internal/providers"
)

// testPNG returns an encoded PNG of the given pixel dimensions.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func fastRetry() backoff.Config {
	return backoff.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestAnalyzeCoercesPayload(t *testing.T) {
	vision := providers.NewMockVision()
	vision.Payload = json.RawMessage(`{
		"regions": [
			{"type": "PLAN", "bbox": [100, 100, 900, 700], "label": "floor plan", "confidence": 0.9},
			{"id": "r-titleblock", "type": "Title_Block", "bbox": {"x0": 300, "y0": 120, "x1": 400, "y1": 160}, "confidence": "bad", "detail_number": 7},
			{"bbox": "nope"}
		],
		"sheet_reflection": "second floor framing",
		"page_type": "plan",
		"cross_references": ["S-201", "", "A-101", null]
	}`)

	a := New(Config{Vision: vision, Retry: fastRetry()})
	got, err := a.Analyze(context.Background(), testPNG(t, 400, 200), PageMeta{ID: "p1", Name: "S-101", Discipline: "structural"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(got.Regions) != 3 {
		t.Fatalf("regions = %d, want 3", len(got.Regions))
	}

	r0 := got.Regions[0]
	if r0.Type != "plan" {
		t.Errorf("type = %q, want lower-cased %q", r0.Type, "plan")
	}
	if r0.ID != "region_001" {
		t.Errorf("synthetic id = %q, want region_001", r0.ID)
	}
	if r0.Box != (geometry.Box{X0: 0.1, Y0: 0.1, X1: 0.9, Y1: 0.7}) {
		t.Errorf("scaled bbox = %+v", r0.Box)
	}
	if r0.Confidence != 0.9 {
		t.Errorf("confidence = %v", r0.Confidence)
	}
	if r0.DetailNumber != "" {
		t.Errorf("detail_number carried through when absent: %q", r0.DetailNumber)
	}

	r1 := got.Regions[1]
	if r1.ID != "r-titleblock" {
		t.Errorf("explicit id = %q", r1.ID)
	}
	// Pixel corners against the decoded 400x200 image.
	if r1.Box != (geometry.Box{X0: 0.75, Y0: 0.6, X1: 1, Y1: 0.8}) {
		t.Errorf("pixel bbox = %+v", r1.Box)
	}
	if r1.Confidence != 0 {
		t.Errorf("invalid confidence = %v, want 0", r1.Confidence)
	}
	if r1.DetailNumber != "7" {
		t.Errorf("detail_number = %q, want \"7\"", r1.DetailNumber)
	}

	if got.Regions[2].ID != "region_003" {
		t.Errorf("third region id = %q", got.Regions[2].ID)
	}

	if got.SheetReflection != "second floor framing" {
		t.Errorf("sheet_reflection = %q", got.SheetReflection)
	}
	if got.PageType != "plan" {
		t.Errorf("page_type = %q", got.PageType)
	}
	if want := []string{"S-201", "A-101"}; !reflect.DeepEqual(got.CrossReferences, want) {
		t.Errorf("cross_references = %v, want %v", got.CrossReferences, want)
	}
}

func TestAnalyzeDefaults(t *testing.T) {
	vision := providers.NewMockVision()
	vision.Payload = json.RawMessage(`{"regions": "not a list", "page_type": 7}`)

	a := New(Config{Vision: vision, Retry: fastRetry()})
	got, err := a.Analyze(context.Background(), testPNG(t, 100, 100), PageMeta{Name: "A-001"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(got.Regions) != 0 {
		t.Errorf("regions = %v, want empty for non-list", got.Regions)
	}
	if got.SheetReflection != "" {
		t.Errorf("sheet_reflection = %q, want empty", got.SheetReflection)
	}
	if got.PageType != "unknown" {
		t.Errorf("page_type = %q, want unknown", got.PageType)
	}
	if len(got.CrossReferences) != 0 {
		t.Errorf("cross_references = %v, want empty", got.CrossReferences)
	}
}

func TestAnalyzeBadImageFailsFast(t *testing.T) {
	vision := providers.NewMockVision()
	a := New(Config{Vision: vision, Retry: fastRetry()})

	_, err := a.Analyze(context.Background(), []byte("not an image"), PageMeta{Name: "A-001"})
	if !errors.Is(err, ErrBadImage) {
		t.Fatalf("error = %v, want ErrBadImage", err)
	}
	if vision.Calls() != 0 {
		t.Errorf("vision called %d times for undecodable image", vision.Calls())
	}
}

func TestAnalyzeRetriesTransientFailures(t *testing.T) {
	vision := providers.NewMockVision()
	vision.FailTimes = 2

	a := New(Config{Vision: vision, Retry: fastRetry()})
	_, err := a.Analyze(context.Background(), testPNG(t, 100, 100), PageMeta{Name: "A-001"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if vision.Calls() != 3 {
		t.Errorf("vision calls = %d, want 3", vision.Calls())
	}
}

func TestAnalyzeExhaustedRetriesPropagate(t *testing.T) {
	vision := providers.NewMockVision()
	vision.FailTimes = 99

	a := New(Config{Vision: vision, Retry: fastRetry()})
	_, err := a.Analyze(context.Background(), testPNG(t, 100, 100), PageMeta{Name: "A-001"})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if vision.Calls() != 3 {
		t.Errorf("vision calls = %d, want 3", vision.Calls())
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	img := testPNG(t, 400, 200)
	meta := PageMeta{ID: "p1", Name: "S-101", Discipline: "structural"}

	run := func() *Result {
		a := New(Config{Vision: providers.NewMockVision(), Retry: fastRetry()})
		res, err := a.Analyze(context.Background(), img, meta)
		if err != nil {
			t.Fatalf("Analyze() error = %v", err)
		}
		return res
	}

	first, second := run(), run()
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Errorf("results differ across identical runs:\n%s\n%s", a, b)
	}
}
