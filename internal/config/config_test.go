package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://r.jina.ai", cfg.Reader.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Reader.Timeout)
	assert.Equal(t, 1000, cfg.Reader.CacheCapacity)
	assert.Equal(t, 1000, cfg.Chunker.MaxSize)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, "qdrant", cfg.Store.Backend)
	assert.Equal(t, "content", cfg.Store.Collection)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SPOOL_READER_ENDPOINT", "http://localhost:9090")
	t.Setenv("SPOOL_READER_CACHE_CAPACITY", "50")
	t.Setenv("SPOOL_EMBEDDING_PROVIDER", "local")
	t.Setenv("SPOOL_EMBEDDING_DIMENSION", "64")
	t.Setenv("SPOOL_STORE_BACKEND", "chromem")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9090", cfg.Reader.Endpoint)
	assert.Equal(t, 50, cfg.Reader.CacheCapacity)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 64, cfg.Embedding.Dimension)
	assert.Equal(t, "chromem", cfg.Store.Backend)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Setenv("SPOOL_EMBEDDING_PROVIDER", "quantum")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding provider")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Chunker.MaxSize = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Embedding.Dimension = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Backend = "postgres"
	require.Error(t, cfg.Validate())
}
