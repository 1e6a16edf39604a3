// Package config loads imgsim settings from defaults, an optional config
// file, IMGSIM_* environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/viant/imgsim/embed"
)

// EnvPrefix prefixes environment overrides, e.g. IMGSIM_SERVER_ADDR.
const EnvPrefix = "IMGSIM"

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Embedding struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Build struct {
	Workers int `mapstructure:"workers"`
}

type Server struct {
	Addr         string        `mapstructure:"addr"`
	TopK         int           `mapstructure:"top_k"`
	MinScore     float64       `mapstructure:"min_score"`
	MaxUploadMB  int           `mapstructure:"max_upload_mb"`
	Frontend     string        `mapstructure:"frontend"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

type Journal struct {
	Path string `mapstructure:"path"`
}

// Config is the full application configuration.
type Config struct {
	Dataset   string    `mapstructure:"dataset"`
	IndexDir  string    `mapstructure:"index_dir"`
	Log       Log       `mapstructure:"log"`
	Embedding Embedding `mapstructure:"embedding"`
	Build     Build     `mapstructure:"build"`
	Server    Server    `mapstructure:"server"`
	Journal   Journal   `mapstructure:"journal"`
}

// SetDefaults registers every key with its default value. Keys must be known
// to viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dataset", "data")
	v.SetDefault("index_dir", "model_data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("embedding.provider", "colorhist")
	v.SetDefault("embedding.model", "google/siglip-base-patch16-224")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.timeout", 30*time.Second)
	v.SetDefault("build.workers", 4)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.top_k", 5)
	v.SetDefault("server.min_score", 0.0)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.frontend", "frontend")
	v.SetDefault("server.query_timeout", 30*time.Second)
	v.SetDefault("journal.path", "builds.db")
}

// NewViper returns a viper instance with defaults and environment overrides
// configured.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (when non-empty) into v and decodes the validated config.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Dataset == "" {
		return fmt.Errorf("dataset is empty")
	}
	if c.IndexDir == "" {
		return fmt.Errorf("index_dir is empty")
	}

	// log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of (debug, info, warn, error), got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of (text, json), got %q", c.Log.Format)
	}

	// embedding
	switch c.Embedding.Provider {
	case "colorhist":
	case "openai":
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is empty")
		}
	default:
		return fmt.Errorf("embedding.provider must be one of (colorhist, openai), got %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must be >= 0, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.Timeout < 0 {
		return fmt.Errorf("embedding.timeout must be >= 0, got %s", c.Embedding.Timeout)
	}

	// build
	if c.Build.Workers < 1 {
		return fmt.Errorf("build.workers must be >= 1, got %d", c.Build.Workers)
	}

	// server
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	if c.Server.TopK < 1 {
		return fmt.Errorf("server.top_k must be >= 1, got %d", c.Server.TopK)
	}
	if c.Server.MinScore < -1 || c.Server.MinScore > 1 {
		return fmt.Errorf("server.min_score must be in [-1, 1], got %v", c.Server.MinScore)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server.max_upload_mb must be >= 1, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.QueryTimeout <= 0 {
		return fmt.Errorf("server.query_timeout must be > 0, got %s", c.Server.QueryTimeout)
	}
	return nil
}

// EmbedConfig returns the provider settings.
func (c *Config) EmbedConfig() embed.Config {
	return embed.Config{
		Provider:   c.Embedding.Provider,
		Model:      c.Embedding.Model,
		BaseURL:    c.Embedding.BaseURL,
		APIKey:     c.Embedding.APIKey,
		Dimensions: c.Embedding.Dimensions,
		Timeout:    c.Embedding.Timeout,
	}
}
