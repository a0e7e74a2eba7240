package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "hybrid", cfg.Mode)
	assert.Equal(t, "ollama", cfg.Backend)
	assert.Equal(t, "Marcut", cfg.Author)
	assert.Equal(t, 300*time.Second, cfg.LLMTimeout())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Model, cfg.Model)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marcut.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode: rules
workers: 8
llm:
  timeout: 30s
chunking:
  max_chars: 2000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rules", cfg.Mode)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout())
	assert.Equal(t, 2000, cfg.Chunking.MaxChars)
	// Untouched keys keep their defaults.
	assert.Equal(t, "ollama", cfg.Backend)
	assert.Equal(t, 600, cfg.Chunking.Overlap)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestOllamaHostOverride(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "gpubox:11434")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gpubox:11434", cfg.LLM.BaseURL)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "aggressive" }},
		{"unknown backend", func(c *Config) { c.Backend = "llama_cpp" }},
		{"hybrid without model", func(c *Config) { c.Model = "" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero chunk size", func(c *Config) { c.Chunking.MaxChars = 0 }},
		{"overlap too large", func(c *Config) { c.Chunking.Overlap = c.Chunking.MaxChars }},
		{"bad timeout", func(c *Config) { c.LLM.Timeout = "soon" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
