// Package config loads and hot-reloads the maestro configuration.
package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Database DatabaseConfig `mapstructure:"database"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Search   SearchConfig   `mapstructure:"search"`
}

// OpenAIConfig configures the vision and embedding providers.
type OpenAIConfig struct {
	APIKey      string `mapstructure:"api_key"`
	VisionModel string `mapstructure:"vision_model"`
	EmbedModel  string `mapstructure:"embed_model"`
	RPM         int    `mapstructure:"rpm"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PipelineConfig tunes the job orchestrator and retry policy.
type PipelineConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	MaxAttempts uint          `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// SearchConfig tunes hybrid retrieval.
type SearchConfig struct {
	MatchCount int `mapstructure:"match_count"`
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg
	return cm, nil
}

// initViper sets up viper with defaults and config file discovery.
func (cm *Manager) initViper(cfgFile string) error {
	d := DefaultConfig()
	viper.SetDefault("openai", map[string]any{
		"vision_model": d.OpenAI.VisionModel,
		"embed_model":  d.OpenAI.EmbedModel,
		"rpm":          d.OpenAI.RPM,
	})
	viper.SetDefault("database", map[string]any{
		"dsn":       d.Database.DSN,
		"max_conns": d.Database.MaxConns,
	})
	viper.SetDefault("pipeline", map[string]any{
		"concurrency":  d.Pipeline.Concurrency,
		"max_attempts": d.Pipeline.MaxAttempts,
		"base_delay":   d.Pipeline.BaseDelay.String(),
		"max_delay":    d.Pipeline.MaxDelay.String(),
	})
	viper.SetDefault("search", map[string]any{
		"match_count": d.Search.MatchCount,
	})

	// Environment variables with MAESTRO_ prefix
	viper.SetEnvPrefix("MAESTRO")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.maestro")
	}

	// Config file is optional
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}
