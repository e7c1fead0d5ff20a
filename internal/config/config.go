// Package config resolves opensrc-mcp's runtime configuration: where state
// lives on disk, the indexing concurrency/batch knobs from the
// specification's concurrency model, the embedder endpoint, and the
// sandbox/search deadlines. Precedence follows the teacher's scheme: env
// vars override a YAML file which overrides compiled-in defaults.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is opensrc-mcp's complete runtime configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Index    IndexConfig    `yaml:"index"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	Search   SearchConfig   `yaml:"search"`
}

// IndexConfig holds the bounds from specification §5.
type IndexConfig struct {
	// MaxConcurrentIndex bounds simultaneously-indexing sources.
	MaxConcurrentIndex int `yaml:"max_concurrent_index"`
	// BatchSize is the number of chunks embedded/inserted per batch
	// before the engine yields to the runtime.
	BatchSize int `yaml:"batch_size"`
}

// EmbedderConfig configures the default Embedder implementation.
type EmbedderConfig struct {
	// Provider names "ollama" (default) or "static". It is loaded from YAML
	// and OPENSRC_EMBEDDER_PROVIDER but not read by embed.New, which always
	// probes Ollama and falls back to the static embedder.
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
	// MaxChars records the per-input character budget. The embed package
	// truncates with its own constant and does not read this field.
	MaxChars int `yaml:"max_chars"`
	Dimensions int `yaml:"dimensions"`
}

// SandboxConfig configures the agent script runtime.
type SandboxConfig struct {
	Deadline time.Duration `yaml:"deadline"`
}

// SearchConfig configures QueryPlanner defaults and the Server's result
// truncation.
type SearchConfig struct {
	DefaultTopK         int           `yaml:"default_top_k"`
	DefaultGrepMax       int           `yaml:"default_grep_max"`
	DefaultAstGrepLimit int           `yaml:"default_ast_grep_limit"`
	Timeout             time.Duration `yaml:"timeout"`
	MaxTokens           int           `yaml:"max_tokens"`
	CharsPerToken        int           `yaml:"chars_per_token"`
}

// Default returns the compiled-in defaults named throughout the
// specification (§5, §6).
func Default() *Config {
	return &Config{
		DataDir: DataDir(),
		Index: IndexConfig{
			MaxConcurrentIndex: 2,
			BatchSize:          50,
		},
		Embedder: EmbedderConfig{
			Provider:   "ollama",
			Model:      "embeddinggemma",
			Endpoint:   "http://localhost:11434",
			MaxChars:   1800,
			Dimensions: 768,
		},
		Sandbox: SandboxConfig{
			Deadline: 30 * time.Second,
		},
		Search: SearchConfig{
			DefaultTopK:         20,
			DefaultGrepMax:      100,
			DefaultAstGrepLimit: 1000,
			Timeout:             30 * time.Second,
			MaxTokens:           8000,
			CharsPerToken:       4,
		},
	}
}

// Load reads an optional YAML config file at path (ignored if it does not
// exist) layered onto Default(), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENSRC_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("OPENSRC_EMBEDDER_PROVIDER"); v != "" {
		cfg.Embedder.Provider = v
	}
	if v := os.Getenv("OPENSRC_EMBEDDER_ENDPOINT"); v != "" {
		cfg.Embedder.Endpoint = v
	}
	if v := os.Getenv("OPENSRC_EMBEDDER_MODEL"); v != "" {
		cfg.Embedder.Model = v
	}
}

// MaxResultChars returns the Server's output truncation limit in chars
// (specification §6: MAX_TOKENS * CHARS_PER_TOKEN).
func (c *Config) MaxResultChars() int {
	return c.Search.MaxTokens * c.Search.CharsPerToken
}
