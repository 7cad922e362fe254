package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

const MockName = "mock"

// MockVision is a VisionProvider for testing. It is deterministic: the same
// configuration and inputs produce the same payloads in the same order.
type MockVision struct {
	// Configurable behavior
	Latency   time.Duration
	FailTimes int             // fail the first N calls
	Payload   json.RawMessage // returned on success (default minimal payload)

	// PayloadFor, when set, overrides Payload per page name.
	PayloadFor func(pageName string) json.RawMessage

	// State
	calls atomic.Int64
}

// NewMockVision creates a mock with a minimal successful payload.
func NewMockVision() *MockVision {
	return &MockVision{
		Payload: json.RawMessage(`{
			"regions": [
				{"type": "Plan", "bbox": [100, 100, 900, 700], "label": "floor plan", "confidence": 0.9}
			],
			"sheet_reflection": "mock sheet",
			"page_type": "plan",
			"cross_references": ["A-101"]
		}`),
	}
}

// Name returns the provider identifier.
func (m *MockVision) Name() string { return MockName }

// Calls returns how many times Analyze has been invoked.
func (m *MockVision) Calls() int64 { return m.calls.Load() }

// Analyze returns the configured payload, failing the first FailTimes calls.
func (m *MockVision) Analyze(ctx context.Context, image []byte, pageName, discipline string) (json.RawMessage, error) {
	n := m.calls.Add(1)

	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Latency):
		}
	}
	if n <= int64(m.FailTimes) {
		return nil, fmt.Errorf("mock vision failure %d", n)
	}
	if m.PayloadFor != nil {
		return m.PayloadFor(pageName), nil
	}
	return m.Payload, nil
}

// MockEmbedder is an Embedder for testing.
type MockEmbedder struct {
	Dim        int // vector length (default 8)
	ShouldFail bool

	calls atomic.Int64
}

// Name returns the provider identifier.
func (m *MockEmbedder) Name() string { return MockName }

// Calls returns how many times Embed has been invoked.
func (m *MockEmbedder) Calls() int64 { return m.calls.Load() }

// Embed returns a deterministic vector derived from the text length.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.ShouldFail {
		return nil, fmt.Errorf("mock embedder failure")
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 8
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32((len(text)+i)%7) / 7.0
	}
	return vec, nil
}
