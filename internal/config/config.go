// Package config loads reviewrecall settings from a YAML file, an optional
// .env file and REVIEWRECALL_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/scoring"
	"github.com/dshills/reviewrecall/internal/searcher"
	"github.com/dshills/reviewrecall/internal/storage"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "REVIEWRECALL_"

// DefaultEnvFile is read when present and no other .env path is given.
const DefaultEnvFile = ".env"

// Config is the complete runtime configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL"`
	Storage   StorageConfig   `yaml:"storage" envPrefix:"STORAGE_"`
	Embedding EmbeddingConfig `yaml:"embedding" envPrefix:"EMBEDDING_"`
	Retrieval RetrievalConfig `yaml:"retrieval" envPrefix:"RETRIEVAL_"`
}

// StorageConfig selects the comment store backend.
type StorageConfig struct {
	Driver          string `yaml:"driver" env:"DRIVER"`
	Path            string `yaml:"path" env:"PATH"`
	MongoURI        string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase   string `yaml:"mongo_database" env:"MONGO_DATABASE"`
	MongoCollection string `yaml:"mongo_collection" env:"MONGO_COLLECTION"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" env:"PROVIDER"`
	Model     string `yaml:"model" env:"MODEL"`
	APIKey    string `yaml:"api_key" env:"API_KEY"`
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
	Dimension int    `yaml:"dimension" env:"DIMENSION"`
	CacheSize int    `yaml:"cache_size" env:"CACHE_SIZE"`
}

// RetrievalConfig tunes the search pipeline.
type RetrievalConfig struct {
	Strategy      string  `yaml:"strategy" env:"STRATEGY"`
	Limit         int     `yaml:"limit" env:"LIMIT"`
	PageSize      int     `yaml:"page_size" env:"PAGE_SIZE"`
	MinSimilarity float64 `yaml:"min_similarity" env:"MIN_SIMILARITY"`
	Workers       int     `yaml:"workers" env:"WORKERS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Driver:          storage.BackendSQLite,
			Path:            defaultDBPath(),
			MongoDatabase:   "reviewrecall",
			MongoCollection: "comments",
		},
		Embedding: EmbeddingConfig{
			Provider:  embedder.DetectProvider(),
			Dimension: embedder.DefaultDimension,
			CacheSize: embedder.DefaultCacheSize,
		},
		Retrieval: RetrievalConfig{
			Strategy:      string(scoring.StrategyContextual),
			Limit:         searcher.DefaultLimit,
			PageSize:      searcher.DefaultPageSize,
			MinSimilarity: searcher.DefaultMinSimilarity,
			Workers:       searcher.DefaultWorkers,
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "reviewrecall.db"
	}
	return filepath.Join(home, ".reviewrecall", "reviewrecall.db")
}

// LoadOptions names the files Load reads. Empty paths are skipped, except
// that DefaultEnvFile is tried when EnvFile is empty.
type LoadOptions struct {
	ConfigPath string
	EnvFile    string
	// Environ overrides the process environment, mainly for tests.
	Environ map[string]string
}

// Load builds a Config from defaults, the YAML file, the .env file and the
// environment, then validates it.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.ConfigPath != "" {
		data, err := os.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", opts.ConfigPath, err)
		}
	}

	vars, err := environment(opts)
	if err != nil {
		return nil, err
	}
	if err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: vars,
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// environment merges the .env file under the process environment, so real
// variables win over file entries.
func environment(opts LoadOptions) (map[string]string, error) {
	vars := make(map[string]string)

	envFile := opts.EnvFile
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}
	fileVars, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		for k, v := range fileVars {
			vars[k] = v
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("failed to read env file %s: %w", envFile, err)
	}

	if opts.Environ != nil {
		for k, v := range opts.Environ {
			vars[k] = v
		}
		return vars, nil
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return vars, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case storage.BackendSQLite:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	case storage.BackendMongo:
		if c.Storage.MongoURI == "" {
			return errors.New("storage.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding.cache_size must not be negative, got %d", c.Embedding.CacheSize)
	}

	if !scoring.Strategy(c.Retrieval.Strategy).Valid() {
		return fmt.Errorf("unknown retrieval strategy %q", c.Retrieval.Strategy)
	}
	if c.Retrieval.Limit < 1 || c.Retrieval.Limit > searcher.MaxLimit {
		return fmt.Errorf("retrieval.limit must be between 1 and %d", searcher.MaxLimit)
	}
	if c.Retrieval.PageSize < 1 {
		return errors.New("retrieval.page_size must be positive")
	}
	if c.Retrieval.MinSimilarity < 0 || c.Retrieval.MinSimilarity > 1 {
		return errors.New("retrieval.min_similarity must be within [0, 1]")
	}
	if c.Retrieval.Workers < 1 {
		return errors.New("retrieval.workers must be positive")
	}
	return nil
}

// StorageConfig maps the storage section onto storage.Config.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Driver:          strings.ToLower(c.Storage.Driver),
		Path:            c.Storage.Path,
		MongoURI:        c.Storage.MongoURI,
		MongoDatabase:   c.Storage.MongoDatabase,
		MongoCollection: c.Storage.MongoCollection,
	}
}

// EmbedderConfig maps the embedding section onto embedder.Config.
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  strings.ToLower(c.Embedding.Provider),
		Model:     c.Embedding.Model,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		Dimension: c.Embedding.Dimension,
		CacheSize: c.Embedding.CacheSize,
	}
}

// RetrieverOptions maps the retrieval section onto searcher.Options.
func (c *Config) RetrieverOptions() searcher.Options {
	return searcher.Options{
		Limit:         c.Retrieval.Limit,
		PageSize:      c.Retrieval.PageSize,
		MinSimilarity: searcher.MinSimilarity(c.Retrieval.MinSimilarity),
		Workers:       c.Retrieval.Workers,
		Strategy:      scoring.Strategy(c.Retrieval.Strategy),
	}
}
