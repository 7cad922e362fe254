// Package providers holds the external AI service clients the pipeline
// depends on. Both services are treated as unreliable: callers wrap every
// call in the backoff executor and compose a rate limiter in front of
// fan-out work.
package providers

import (
	"context"
	"encoding/json"
)

// VisionProvider runs the single-pass drawing comprehension step for one
// page image. The returned payload is the provider's raw structured output;
// the analyzer owns all defensive coercion of it.
type VisionProvider interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string

	// Analyze submits one rendered page image with its identifying
	// metadata and returns the raw JSON comprehension payload:
	// {regions, sheet_reflection, page_type, cross_references}.
	Analyze(ctx context.Context, image []byte, pageName, discipline string) (json.RawMessage, error)
}

// Embedder produces fixed-length embedding vectors for query and content
// text.
type Embedder interface {
	// Name returns the provider identifier.
	Name() string

	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
