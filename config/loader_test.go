package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
chunking:
  chunk_size: 800
  chunk_overlap: 100
llm:
  model: deepseek-reasoner
  timeout: 90s
store:
  driver: memory
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.ChunkSize)
	assert.Equal(t, 100, cfg.Chunking.ChunkOverlap)
	assert.Equal(t, "deepseek-reasoner", cfg.LLM.Model)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "memory", cfg.Store.Driver)
	// 未覆盖的字段保持默认值
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 3\n"), 0o644))

	t.Setenv("EDURAG_RETRIEVAL_TOP_K", "8")
	t.Setenv("EDURAG_EMBEDDING_API_KEY", "env-key")
	t.Setenv("EDURAG_CACHE_ENABLED", "true")
	t.Setenv("EDURAG_EMBEDDING_TIMEOUT", "45s")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "env-key", cfg.Embedding.APIKey)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Embedding.Timeout)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Chunking.ChunkOverlap = cfg.Chunking.ChunkSize
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Store.Driver = "chroma"
	assert.Error(t, cfg.Validate())
}

func TestLoad_ValidatorRejects(t *testing.T) {
	_, err := NewLoader().
		WithValidator(func(c *Config) error {
			c.Retrieval.TopK = -1
			return c.Validate()
		}).
		Load()
	assert.Error(t, err)
}

func TestNewLogger_DoesNotPanic(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger := NewLogger(LogConfig{Level: "debug", Format: format})
		require.NotNil(t, logger)
		logger.Debug("logger smoke test")
	}
}
