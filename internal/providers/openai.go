package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	OpenAIName               = "openai"
	openAIDefaultVisionModel = "gpt-4o"
	openAIDefaultEmbedModel  = "text-embedding-3-small"
	openAIDefaultCallTimeout = 120 * time.Second
	openAIVisionMaxTokens    = 4096
	openAIVisionTemperature  = 0.0
)

const visionSystemPrompt = `You are a construction drawing analyst. You receive one rasterized
sheet of a drawing set together with its sheet name and discipline. Return a
single JSON object with exactly these fields:

  "regions": array of detected structural regions, each with "type" (category
    such as plan, elevation, section, detail, schedule, legend, title_block,
    notes), "bbox" as [x0,y0,x1,y1] integers on a 0-1000 grid, "label" (short
    human-readable caption), "confidence" (0.0-1.0) and optionally
    "detail_number" when the region carries a callout number.
  "sheet_reflection": a short narrative of what this sheet communicates.
  "page_type": one word classifying the sheet.
  "cross_references": array of sheet names this sheet refers to.

Respond with JSON only.`

// visionResponseSchema loosely validates the shape of the comprehension
// payload. Field-level coercion stays with the analyzer; the schema only
// rejects responses that are structurally unusable (wrong top-level type,
// regions not an array of objects).
const visionResponseSchema = `{
	"type": "object",
	"properties": {
		"regions": {
			"type": "array",
			"items": {"type": "object"}
		},
		"sheet_reflection": {"type": "string"},
		"page_type": {"type": "string"},
		"cross_references": {"type": "array"}
	}
}`

// OpenAIConfig holds configuration for the OpenAI-backed providers.
type OpenAIConfig struct {
	APIKey      string
	VisionModel string // default "gpt-4o"
	EmbedModel  string // default "text-embedding-3-small"
	Timeout     time.Duration
	BaseURL     string       // optional (tests)
	HTTPClient  *http.Client // optional (tests)
	Logger      *slog.Logger
}

// OpenAIClient implements VisionProvider and Embedder using the official
// OpenAI SDK. SDK-level transport retries are disabled: retry policy lives
// in the backoff executor so attempts are counted in one place.
type OpenAIClient struct {
	client      openai.Client
	visionModel string
	embedModel  string
	schema      *jsonschema.Schema
	logger      *slog.Logger
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: missing API key")
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = openAIDefaultVisionModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = openAIDefaultEmbedModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = openAIDefaultCallTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	schema, err := jsonschema.CompileString("vision_response.json", visionResponseSchema)
	if err != nil {
		return nil, fmt.Errorf("openai: compile vision schema: %w", err)
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		visionModel: cfg.VisionModel,
		embedModel:  cfg.EmbedModel,
		schema:      schema,
		logger:      cfg.Logger.With("provider", OpenAIName),
	}, nil
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string { return OpenAIName }

// Analyze submits one page image for comprehension and returns the raw
// validated JSON payload.
func (c *OpenAIClient) Analyze(ctx context.Context, image []byte, pageName, discipline string) (json.RawMessage, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s",
		http.DetectContentType(image),
		base64.StdEncoding.EncodeToString(image),
	)
	userPrompt := fmt.Sprintf("Sheet name: %s\nDiscipline: %s\nAnalyze this sheet.", pageName, discipline)

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.visionModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(visionSystemPrompt),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(userPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
		MaxTokens:   openai.Int(openAIVisionMaxTokens),
		Temperature: openai.Float(openAIVisionTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision response has no choices")
	}

	raw := json.RawMessage(resp.Choices[0].Message.Content)
	if err := c.validate(raw); err != nil {
		// Malformed model output is transient: the caller's backoff
		// executor re-asks the model.
		return nil, fmt.Errorf("vision response rejected: %w", err)
	}
	return raw, nil
}

func (c *OpenAIClient) validate(raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	return c.schema.Validate(doc)
}

// Embed returns the embedding vector for the given text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response has no data")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
