package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("EMBEDDING_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, 1000, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 200, cfg.Knowledge.ChunkOverlap)
	assert.Equal(t, 5, cfg.Chat.TopK)
	assert.Equal(t, "test-key", cfg.Chat.APIKey)
	assert.Equal(t, "test-key", cfg.Embedding.APIKey, "embedding key falls back to API_KEY")
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	t.Setenv("API_KEY", "test-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
knowledge:
  root: ./kb
  chunk_size: 500
  chunk_overlap: 50
store:
  backend: redis
  redis_addr: redis.local:6379
chat:
  model: gpt-4o
  top_k: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Knowledge.ChunkSize)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis.local:6379", cfg.Store.RedisAddr)
	assert.Equal(t, "gpt-4o", cfg.Chat.Model)
	assert.Equal(t, 3, cfg.Chat.TopK)
	assert.Equal(t, filepath.Join(dir, "kb"), cfg.Knowledge.Root, "relative paths resolve against the config file")
	// Unset fields still get defaults.
	assert.Equal(t, "openai", cfg.Chat.Provider)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("API_KEY", "test-key")
	t.Setenv("MODEL", "env-model")
	t.Setenv("EMBEDDING_MODEL", "env-embed")
	t.Setenv("KNOWLEDGE_ROOT", "/srv/kb")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-model", cfg.Chat.Model)
	assert.Equal(t, "env-embed", cfg.Embedding.Model)
	assert.Equal(t, "/srv/kb", cfg.Knowledge.Root)
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")
	t.Setenv("EMBEDDING_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, errors.Is(cfg.Validate(), ErrMissingAPIKey))
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		ApplyDefaults(cfg)
		cfg.Chat.APIKey = "k"
		return cfg
	}

	t.Run("overlap not below size", func(t *testing.T) {
		cfg := base()
		cfg.Knowledge.ChunkOverlap = cfg.Knowledge.ChunkSize
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero chunk size", func(t *testing.T) {
		cfg := base()
		cfg.Knowledge.ChunkSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero top_k", func(t *testing.T) {
		cfg := base()
		cfg.Chat.TopK = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base()
		cfg.Store.Backend = "etcd"
		assert.Error(t, cfg.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 9090}
	assert.Equal(t, "0.0.0.0:9090", s.Addr())
}
