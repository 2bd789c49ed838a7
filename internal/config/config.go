// Package config loads the application configuration from a TOML file.
// Absent keys keep their built-in defaults, so a partial file is valid and
// a missing file yields the default configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full application configuration.
type Config struct {
	// DataDir holds the corpus database. Defaults to ~/.campfire/data.
	DataDir string `toml:"data_dir"`

	// PolicyFile is an optional TOML safety policy override.
	PolicyFile string `toml:"policy_file"`

	Backend BackendConfig `toml:"backend"`
	Chunker ChunkerConfig `toml:"chunker"`
	Engine  EngineConfig  `toml:"engine"`
	HTTP    HTTPConfig    `toml:"http"`
}

// BackendConfig selects the generation backend.
type BackendConfig struct {
	// Provider is "ollama", "lmstudio", or "auto".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// TimeoutSeconds bounds each inference request.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// ChunkerConfig tunes document chunking.
type ChunkerConfig struct {
	ChunkSize          int  `toml:"chunk_size"`
	Overlap            int  `toml:"overlap"`
	MinChunkSize       int  `toml:"min_chunk_size"`
	SentenceBoundaries bool `toml:"sentence_boundaries"`
}

// EngineConfig bounds the orchestration loop.
type EngineConfig struct {
	MaxIterations  int     `toml:"max_iterations"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
	MaxHistory     int     `toml:"max_history"`
	TimeoutSeconds int     `toml:"timeout_seconds"`

	// FallbackMode is "auto", "always", or "never": when canned template
	// answers substitute for live generation.
	FallbackMode string `toml:"fallback_mode"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`

	// AdminToken protects the /admin endpoints. Empty disables them.
	AdminToken string `toml:"admin_token"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			Provider:       "auto",
			TimeoutSeconds: 120,
		},
		Chunker: ChunkerConfig{
			ChunkSize:          1000,
			Overlap:            200,
			MinChunkSize:       100,
			SentenceBoundaries: true,
		},
		Engine: EngineConfig{
			MaxIterations:  5,
			MaxTokens:      2048,
			Temperature:    0.1,
			MaxHistory:     20,
			TimeoutSeconds: 120,
			FallbackMode:   "auto",
		},
		HTTP: HTTPConfig{
			Addr: "localhost:8787",
		},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".campfire", "config.toml"), nil
}

// Load reads the config at path, or the default location when path is
// empty. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// BackendTimeout returns the backend request timeout as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// EngineTimeout returns the per-generation timeout as a duration.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}
