package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetViper() {
	viper.Reset()
}

func TestDefaults(t *testing.T) {
	defer resetViper()

	cm, err := NewManager("")
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	cfg := cm.Get()
	if cfg.Pipeline.Concurrency != 3 {
		t.Errorf("concurrency = %d, want 3", cfg.Pipeline.Concurrency)
	}
	if cfg.Pipeline.BaseDelay != time.Second {
		t.Errorf("base_delay = %v, want 1s", cfg.Pipeline.BaseDelay)
	}
	if cfg.OpenAI.VisionModel != "gpt-4o" {
		t.Errorf("vision_model = %q", cfg.OpenAI.VisionModel)
	}
	if cfg.Search.MatchCount != 10 {
		t.Errorf("match_count = %d, want 10", cfg.Search.MatchCount)
	}
}

func TestLoadFromFile(t *testing.T) {
	defer resetViper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("pipeline:\n  concurrency: 7\n  max_attempts: 5\nopenai:\n  vision_model: gpt-4o-mini\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cm, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	cfg := cm.Get()
	if cfg.Pipeline.Concurrency != 7 {
		t.Errorf("concurrency = %d, want 7", cfg.Pipeline.Concurrency)
	}
	if cfg.Pipeline.MaxAttempts != 5 {
		t.Errorf("max_attempts = %d, want 5", cfg.Pipeline.MaxAttempts)
	}
	if cfg.OpenAI.VisionModel != "gpt-4o-mini" {
		t.Errorf("vision_model = %q", cfg.OpenAI.VisionModel)
	}
	// Untouched keys keep their defaults.
	if cfg.Search.MatchCount != 10 {
		t.Errorf("match_count = %d, want default 10", cfg.Search.MatchCount)
	}
}

func TestWriteDefault(t *testing.T) {
	defer resetViper()

	path := filepath.Join(t.TempDir(), "maestro", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if err := WriteDefault(path); err == nil {
		t.Error("WriteDefault() should refuse to overwrite")
	}

	cm, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() on written file error = %v", err)
	}
	if cm.Get().Pipeline.Concurrency != 3 {
		t.Errorf("written defaults do not round-trip")
	}
}
