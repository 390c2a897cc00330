// Package config provides configuration loading for docent. Tunables come
// from an optional YAML file with defaults applied; credentials come only
// from the environment and are never written to disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when a required credential is absent from the
// environment.
var ErrMissingAPIKey = errors.New("API_KEY environment variable is required")

// Config holds all configuration for the application. It is passed explicitly
// to constructors; nothing reads it through package globals.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Store     StoreConfig     `yaml:"store"`
	Chat      ChatConfig      `yaml:"chat"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Server    ServerConfig    `yaml:"server"`
}

// KnowledgeConfig describes the knowledge-base directory and how it is split
// into chunks.
type KnowledgeConfig struct {
	Root         string `yaml:"root"`
	Pattern      string `yaml:"pattern"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// StoreConfig selects and locates the vector store backend.
type StoreConfig struct {
	// Backend is "file" or "redis".
	Backend string `yaml:"backend"`
	// Name is the collection name (index name for redis, file name stem for
	// the file store).
	Name string `yaml:"name"`
	// Path is the directory holding the file store.
	Path string `yaml:"path"`
	// Redis connection settings, used only when Backend is "redis".
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// ChatConfig holds the chat completion model settings. The API key is read
// from the environment, not from the file.
type ChatConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Provider    string  `yaml:"provider"` // "openai" or "gemini"
	Temperature float32 `yaml:"temperature"`
	TopK        int     `yaml:"top_k"`
	APIKey      string  `yaml:"-"`
}

// EmbeddingConfig holds the embedding model settings.
type EmbeddingConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"-"`
}

// ServerConfig holds the HTTP chat server settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	RequestTimeout int    `yaml:"request_timeout_seconds"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads the config file at path, applies defaults, resolves relative
// paths against the file's directory, and pulls credentials from the
// environment. A missing file is not an error: defaults plus environment are
// used, so a .env file alone is enough to run.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
			// Fall through to defaults.
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	ApplyDefaults(&cfg)

	if path != "" {
		dir := filepath.Dir(path)
		cfg.Knowledge.Root = expandPath(cfg.Knowledge.Root, dir)
		cfg.Store.Path = expandPath(cfg.Store.Path, dir)
	}

	cfg.Chat.APIKey = os.Getenv("API_KEY")
	cfg.Embedding.APIKey = os.Getenv("EMBEDDING_API_KEY")
	if cfg.Embedding.APIKey == "" {
		// Most OpenAI-compatible providers serve both endpoints with one key.
		cfg.Embedding.APIKey = cfg.Chat.APIKey
	}
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// Validate checks the invariants that would otherwise fail deep inside the
// pipeline. Called once at startup; violations are fatal.
func (c *Config) Validate() error {
	if c.Chat.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Knowledge.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Knowledge.ChunkSize)
	}
	if c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.Knowledge.ChunkOverlap)
	}
	if c.Chat.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Chat.TopK)
	}
	if b := c.Store.Backend; b != "file" && b != "redis" {
		return fmt.Errorf("unknown store backend %q", b)
	}
	return nil
}

// applyEnvOverrides lets the usual provider environment variables override
// file values, matching how the models are configured elsewhere.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("MODEL"); v != "" {
		cfg.Chat.Model = v
	}
	if v := os.Getenv("EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("KNOWLEDGE_ROOT"); v != "" {
		cfg.Knowledge.Root = v
	}
}

// expandPath converts a relative path to absolute. Paths starting with "./"
// are relative to configDir; absolute paths pass through.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	return path
}
