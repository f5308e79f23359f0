// Package config loads and edits the on-disk configuration. The file lives
// at ~/.codequery/config.yaml; a missing file yields the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codequery-ai/codequery/pkg/types"
)

// EnvVectorURL overrides vector.url when set.
const EnvVectorURL = "CODEQUERY_VECTOR_URL"

// Config holds the application configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	LLM       LLMConfig       `yaml:"llm"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// PathsConfig lists the roots indexed when the index command is run without
// explicit path arguments.
type PathsConfig struct {
	IndexRoot []string `yaml:"index_root"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"`
	Temperature float32 `yaml:"temperature"`
}

// VectorConfig selects and locates the vector store backend.
type VectorConfig struct {
	Backend        string `yaml:"backend"` // "qdrant" | "local"
	URL            string `yaml:"url"`
	CollectionName string `yaml:"collection_name"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai" | "local"
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

// Default returns a configuration with every field at its default value.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{IndexRoot: []string{"."}},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
		},
		Vector: VectorConfig{
			Backend:        "qdrant",
			URL:            "http://127.0.0.1:6333",
			CollectionName: "codequery",
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			BatchSize: 100,
		},
	}
}

// Manager reads and writes the config file at a fixed path.
type Manager struct {
	path string
}

// NewManager resolves the default config path under the user's home
// directory.
func NewManager() (*Manager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("%w: resolve home directory: %v", types.ErrConfig, err)
	}
	return &Manager{path: filepath.Join(home, ".codequery", "config.yaml")}, nil
}

// NewManagerAt uses an explicit config file path.
func NewManagerAt(path string) *Manager {
	return &Manager{path: path}
}

// Path returns the config file location.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the config file, fills in defaults for missing fields, and
// resolves environment indirections. A missing file is not an error.
func (m *Manager) Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return resolveEnv(cfg), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrConfig, m.path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", types.ErrConfig, m.path, err)
	}

	cfg.applyDefaults()
	return resolveEnv(cfg), nil
}

// Save writes the config file, creating the parent directory if needed.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("%w: create config directory: %v", types.ErrConfig, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("%w: marshal config: %v", types.ErrConfig, err)
	}

	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", types.ErrConfig, m.path, err)
	}
	return nil
}

// Set updates a single dotted key (e.g. "llm.model") and persists the file.
func (m *Manager) Set(key, value string) error {
	cfg, err := m.Load()
	if err != nil {
		return err
	}

	switch key {
	case "llm.provider":
		cfg.LLM.Provider = value
	case "llm.model":
		cfg.LLM.Model = value
	case "llm.api_key":
		cfg.LLM.APIKey = value
	case "llm.temperature":
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return fmt.Errorf("%w: llm.temperature: %v", types.ErrConfig, err)
		}
		cfg.LLM.Temperature = float32(f)
	case "vector.backend":
		cfg.Vector.Backend = value
	case "vector.url":
		cfg.Vector.URL = value
	case "vector.collection_name":
		cfg.Vector.CollectionName = value
	case "embedding.provider":
		cfg.Embedding.Provider = value
	case "embedding.model":
		cfg.Embedding.Model = value
	case "embedding.batch_size":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: embedding.batch_size must be a positive integer", types.ErrConfig)
		}
		cfg.Embedding.BatchSize = n
	default:
		return fmt.Errorf("%w: unknown configuration key: %s", types.ErrConfig, key)
	}

	return m.Save(cfg)
}

// DataDir returns the directory where the local vector store and embedding
// cache live, creating it on first use.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: resolve home directory: %v", types.ErrConfig, err)
	}
	dir := filepath.Join(home, ".codequery", "data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create data directory: %v", types.ErrConfig, err)
	}
	return dir, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if len(c.Paths.IndexRoot) == 0 {
		c.Paths.IndexRoot = def.Paths.IndexRoot
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.LLM.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	// Temperature is deliberately left alone: Load unmarshals on top of the
	// defaults, so an absent key already reads 0.3 while an explicit 0 is a
	// valid setting that must survive.
	if c.Vector.Backend == "" {
		c.Vector.Backend = def.Vector.Backend
	}
	if c.Vector.URL == "" {
		c.Vector.URL = def.Vector.URL
	}
	if c.Vector.CollectionName == "" {
		c.Vector.CollectionName = def.Vector.CollectionName
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = def.Embedding.Provider
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = def.Embedding.Model
	}
	if c.Embedding.BatchSize == 0 {
		c.Embedding.BatchSize = def.Embedding.BatchSize
	}
}

// resolveEnv expands "env:VAR" API key indirection and applies environment
// overrides.
func resolveEnv(cfg *Config) *Config {
	if strings.HasPrefix(cfg.LLM.APIKey, "env:") {
		cfg.LLM.APIKey = os.Getenv(strings.TrimPrefix(cfg.LLM.APIKey, "env:"))
	}
	if url := os.Getenv(EnvVectorURL); url != "" {
		cfg.Vector.URL = url
	}
	return cfg
}
