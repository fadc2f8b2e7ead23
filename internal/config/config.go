// Package config loads medsearch configuration from YAML files and
// MEDSEARCH_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/medlit/medsearch/internal/chunk"
	"github.com/medlit/medsearch/internal/embed"
	mederrors "github.com/medlit/medsearch/internal/errors"
	"github.com/medlit/medsearch/internal/search"
)

// Config is the complete medsearch configuration.
type Config struct {
	Index      IndexConfig      `yaml:"index"`
	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Structured StructuredConfig `yaml:"structured"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// IndexConfig configures index artifacts and chunking.
type IndexConfig struct {
	// Dir is the index artifact directory.
	Dir string `yaml:"dir"`

	// ChunkSize is the sliding-window size in tokens.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the window overlap in tokens.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// SearchConfig configures the fusion engine.
type SearchConfig struct {
	// K is the default result count.
	K int `yaml:"k"`

	// Backend weights. They need not sum to one; fusion is additive.
	VectorWeight     float64 `yaml:"vector_weight"`
	LexicalWeight    float64 `yaml:"lexical_weight"`
	StructuredWeight float64 `yaml:"structured_weight"`

	// StructuredConfidence is the fixed normalized score for
	// structured hits.
	StructuredConfidence float64 `yaml:"structured_confidence"`

	// BackendTimeout bounds each backend call per query.
	BackendTimeout Duration `yaml:"backend_timeout"`

	// CacheSize is the query cache capacity. Zero disables it.
	CacheSize int `yaml:"cache_size"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "static" or "ollama".
	Provider string `yaml:"provider"`

	Model      string `yaml:"model"`
	OllamaHost string `yaml:"ollama_host"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

// StructuredConfig configures the trial database lookup backend.
type StructuredConfig struct {
	// DatabasePath is the SQLite trial database. Empty disables the
	// structured backend.
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConfigFileName is the per-directory config file.
const ConfigFileName = "medsearch.yaml"

// Duration wraps time.Duration so YAML files can use strings like
// "3s" or "500ms".
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	defaults := search.DefaultWeights()
	return &Config{
		Index: IndexConfig{
			Dir:          defaultIndexDir(),
			ChunkSize:    chunk.DefaultChunkTokens,
			ChunkOverlap: chunk.DefaultOverlapTokens,
		},
		Search: SearchConfig{
			K:                    10,
			VectorWeight:         defaults.Vector,
			LexicalWeight:        defaults.Lexical,
			StructuredWeight:     defaults.Structured,
			StructuredConfidence: search.DefaultStructuredConfidence,
			BackendTimeout:       Duration(search.DefaultBackendTimeout),
			CacheSize:            search.DefaultCacheSize,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "static",
			Model:      embed.DefaultOllamaModel,
			OllamaHost: embed.DefaultOllamaHost,
			BatchSize:  embed.DefaultBatchSize,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultIndexDir is ~/.medsearch/index.
func defaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".medsearch/index"
	}
	return filepath.Join(home, ".medsearch", "index")
}

// Load builds the effective configuration: defaults, then the config
// file in dir (if present), then environment overrides, then
// validation.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML merges values from a YAML file over the current config.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return mederrors.New(mederrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return mederrors.New(mederrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

// applyEnvOverrides applies MEDSEARCH_* environment variables, which
// take precedence over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MEDSEARCH_INDEX_DIR"); v != "" {
		c.Index.Dir = v
	}
	if v := os.Getenv("MEDSEARCH_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Index.ChunkSize = n
		}
	}
	if v := os.Getenv("MEDSEARCH_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Index.ChunkOverlap = n
		}
	}
	if v := os.Getenv("MEDSEARCH_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.VectorWeight = f
		}
	}
	if v := os.Getenv("MEDSEARCH_LEXICAL_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.LexicalWeight = f
		}
	}
	if v := os.Getenv("MEDSEARCH_STRUCTURED_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.StructuredWeight = f
		}
	}
	if v := os.Getenv("MEDSEARCH_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("MEDSEARCH_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("MEDSEARCH_DATABASE_PATH"); v != "" {
		c.Structured.DatabasePath = v
	}
	if v := os.Getenv("MEDSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	if c.Search.K <= 0 {
		return mederrors.New(mederrors.ErrCodeInvalidK,
			fmt.Sprintf("search.k must be positive, got %d", c.Search.K), nil)
	}
	if c.Search.VectorWeight < 0 || c.Search.LexicalWeight < 0 || c.Search.StructuredWeight < 0 {
		return mederrors.ConfigError("backend weights must be non-negative", nil)
	}
	if c.Search.VectorWeight+c.Search.LexicalWeight+c.Search.StructuredWeight == 0 {
		return mederrors.ConfigError("at least one backend weight must be positive", nil)
	}
	if c.Search.StructuredConfidence <= 0 || c.Search.StructuredConfidence > 1 {
		return mederrors.ConfigError(
			fmt.Sprintf("structured_confidence must be in (0,1], got %f", c.Search.StructuredConfidence), nil)
	}

	if c.Index.ChunkSize <= 0 {
		return mederrors.ConfigError(
			fmt.Sprintf("chunk_size must be positive, got %d", c.Index.ChunkSize), nil)
	}
	if c.Index.ChunkOverlap < 0 {
		return mederrors.ConfigError(
			fmt.Sprintf("chunk_overlap must be non-negative, got %d", c.Index.ChunkOverlap), nil)
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return mederrors.ConfigError(
			fmt.Sprintf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
				c.Index.ChunkOverlap, c.Index.ChunkSize), nil)
	}

	provider := strings.ToLower(c.Embeddings.Provider)
	if provider != "static" && provider != "ollama" {
		return mederrors.ConfigError(
			fmt.Sprintf("embeddings.provider must be 'static' or 'ollama', got %s", c.Embeddings.Provider), nil)
	}

	level := strings.ToLower(c.Logging.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[level] {
		return mederrors.ConfigError(
			fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}

	return nil
}

// Weights converts the configured weights to the search type.
func (c *Config) Weights() search.Weights {
	return search.Weights{
		Vector:     c.Search.VectorWeight,
		Lexical:    c.Search.LexicalWeight,
		Structured: c.Search.StructuredWeight,
	}
}

// ChunkOptions converts the configured window to chunker options.
func (c *Config) ChunkOptions() chunk.Options {
	return chunk.Options{
		Size:    c.Index.ChunkSize,
		Overlap: c.Index.ChunkOverlap,
	}
}

// EngineConfig converts the search section to an engine config.
func (c *Config) EngineConfig() search.EngineConfig {
	return search.EngineConfig{
		BackendTimeout:       time.Duration(c.Search.BackendTimeout),
		StructuredConfidence: c.Search.StructuredConfidence,
		CacheSize:            c.Search.CacheSize,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
