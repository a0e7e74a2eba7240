// Package config defines the marcut runtime configuration: redaction
// mode, model backend, chunking geometry, and logging. Values come from
// a YAML file layered over defaults, with a handful of environment
// overrides on top.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	// Mode selects the detection strategy: "rules" or "hybrid".
	Mode string `yaml:"mode"`
	// Backend selects the model backend: "ollama" or "mock".
	Backend string `yaml:"backend"`
	// Model is the backend model identifier.
	Model string `yaml:"model"`
	// Author is recorded on every generated tracked change.
	Author string `yaml:"author"`
	// Workers bounds concurrent chunk extraction calls.
	Workers int `yaml:"workers"`

	LLM      LLMConfig      `yaml:"llm"`
	Chunking ChunkingConfig `yaml:"chunking"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LLMConfig tunes the model backend connection and sampling.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
	Temperature float64 `yaml:"temperature"`
	Seed        int     `yaml:"seed"`
}

// ChunkingConfig sets the sliding-window geometry in characters.
type ChunkingConfig struct {
	MaxChars int `yaml:"max_chars"`
	Overlap  int `yaml:"overlap"`
}

// LoggingConfig controls log verbosity and the optional file sink.
type LoggingConfig struct {
	Verbose bool   `yaml:"verbose"`
	File    string `yaml:"file"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Mode:    "hybrid",
		Backend: "ollama",
		Model:   "llama3.1:8b",
		Author:  "Marcut",
		Workers: 4,

		LLM: LLMConfig{
			Timeout:     "300s",
			Temperature: 0.1,
			Seed:        42,
		},

		Chunking: ChunkingConfig{
			MaxChars: 4000,
			Overlap:  600,
		},

		Logging: LoggingConfig{
			Verbose: false,
		},
	}
}

// Load reads configuration from a YAML file layered over defaults. A
// missing file yields the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadDotEnv loads an optional .env file into the process environment
// before any environment overrides are read. A missing file is fine.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		c.LLM.BaseURL = host
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case "rules", "hybrid":
	default:
		return fmt.Errorf("config: unknown mode %q (want rules or hybrid)", c.Mode)
	}
	switch c.Backend {
	case "ollama", "mock":
	default:
		return fmt.Errorf("config: unknown backend %q (want ollama or mock)", c.Backend)
	}
	if c.Mode == "hybrid" && c.Model == "" {
		return fmt.Errorf("config: hybrid mode requires a model")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if c.Chunking.MaxChars <= 0 {
		return fmt.Errorf("config: chunking max_chars must be positive, got %d", c.Chunking.MaxChars)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxChars {
		return fmt.Errorf("config: chunking overlap %d out of range [0, %d)", c.Chunking.Overlap, c.Chunking.MaxChars)
	}
	if _, err := time.ParseDuration(c.LLM.Timeout); c.LLM.Timeout != "" && err != nil {
		return fmt.Errorf("config: llm timeout: %w", err)
	}
	return nil
}

// LLMTimeout returns the backend timeout as a duration, falling back to
// five minutes when unset or unparseable.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 300 * time.Second
	}
	return d
}
