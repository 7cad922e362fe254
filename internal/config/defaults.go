package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			VisionModel: "gpt-4o",
			EmbedModel:  "text-embedding-3-small",
			RPM:         150,
		},
		Database: DatabaseConfig{
			DSN:      "postgres://localhost:5432/maestro?sslmode=disable",
			MaxConns: 8,
		},
		Pipeline: PipelineConfig{
			Concurrency: 3,
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
		},
		Search: SearchConfig{
			MatchCount: 10,
		},
	}
}

// WriteDefault writes a starter config file at path, creating parent
// directories. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	out := map[string]any{
		"openai": map[string]any{
			"api_key":      "${OPENAI_API_KEY}",
			"vision_model": "gpt-4o",
			"embed_model":  "text-embedding-3-small",
			"rpm":          150,
		},
		"database": map[string]any{
			"dsn":       "postgres://localhost:5432/maestro?sslmode=disable",
			"max_conns": 8,
		},
		"pipeline": map[string]any{
			"concurrency":  3,
			"max_attempts": 3,
			"base_delay":   "1s",
			"max_delay":    "30s",
		},
		"search": map[string]any{
			"match_count": 10,
		},
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
