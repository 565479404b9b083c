// Package config provides environment-driven configuration for spool.
//
// Settings are loaded from SPOOL_* environment variables with sensible
// defaults, e.g. SPOOL_READER_ENDPOINT -> reader.endpoint. A .env file is
// honored by the CLI entry points for local development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SPOOL_"

// Config holds the complete spool configuration.
type Config struct {
	Reader    ReaderConfig    `koanf:"reader"`
	Chunker   ChunkerConfig   `koanf:"chunker"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Store     StoreConfig     `koanf:"store"`
	Archive   ArchiveConfig   `koanf:"archive"`
}

// ReaderConfig configures the remote fetch client and its cache.
type ReaderConfig struct {
	Endpoint      string        `koanf:"endpoint"`
	Timeout       time.Duration `koanf:"timeout"`
	CacheCapacity int           `koanf:"cache_capacity"`
}

// ChunkerConfig configures text splitting.
type ChunkerConfig struct {
	MaxSize int `koanf:"max_size"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "local".
	Provider  string `koanf:"provider"`
	APIKey    string `koanf:"api_key"`
	Model     string `koanf:"model"`
	Dimension int    `koanf:"dimension"`
}

// StoreConfig selects and configures the durable vector store.
type StoreConfig struct {
	// Backend is "qdrant" or "chromem".
	Backend    string `koanf:"backend"`
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
}

// ArchiveConfig configures cold-storage archival.
type ArchiveConfig struct {
	Dir string `koanf:"dir"`
}

// Default returns the configuration defaults used when the corresponding
// environment variables are unset.
func Default() Config {
	return Config{
		Reader: ReaderConfig{
			Endpoint:      "https://r.jina.ai",
			Timeout:       30 * time.Second,
			CacheCapacity: 1000,
		},
		Chunker: ChunkerConfig{MaxSize: 1000},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		Store: StoreConfig{
			Backend:    "qdrant",
			Host:       "localhost",
			Port:       6334,
			Path:       "~/.local/share/spool/vectorstore",
			Collection: "content",
		},
		Archive: ArchiveConfig{Dir: "~/.local/share/spool/archive"},
	}
}

// Load reads configuration from the environment on top of the defaults.
//
// Variables map to config keys by stripping the SPOOL_ prefix, lowercasing,
// and splitting on the first underscore:
//
//	SPOOL_READER_ENDPOINT     -> reader.endpoint
//	SPOOL_STORE_BACKEND       -> store.backend
//	SPOOL_EMBEDDING_API_KEY   -> embedding.api_key
func Load() (*Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "local":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Store.Backend {
	case "qdrant", "chromem":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Reader.CacheCapacity <= 0 {
		return fmt.Errorf("reader cache capacity must be positive, got %d", c.Reader.CacheCapacity)
	}
	if c.Chunker.MaxSize <= 0 {
		return fmt.Errorf("chunker max size must be positive, got %d", c.Chunker.MaxSize)
	}
	return nil
}
