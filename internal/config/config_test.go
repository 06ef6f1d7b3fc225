package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/reviewrecall/internal/scoring"
	"github.com/dshills/reviewrecall/internal/searcher"
	"github.com/dshills/reviewrecall/internal/storage"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, storage.BackendSQLite, cfg.Storage.Driver)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, 1000, cfg.Embedding.CacheSize)
	assert.Equal(t, string(scoring.StrategyContextual), cfg.Retrieval.Strategy)
	assert.Equal(t, searcher.DefaultLimit, cfg.Retrieval.Limit)
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "reviewrecall.yaml", `
log_level: debug
storage:
  path: /tmp/from-yaml.db
retrieval:
  limit: 15
  strategy: chunk
`)
	envPath := writeFile(t, dir, "test.env", "REVIEWRECALL_RETRIEVAL_LIMIT=20\nREVIEWRECALL_RETRIEVAL_WORKERS=2\n")

	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		EnvFile:    envPath,
		Environ: map[string]string{
			"REVIEWRECALL_RETRIEVAL_LIMIT":          "25",
			"REVIEWRECALL_EMBEDDING_PROVIDER":       "local",
			"REVIEWRECALL_RETRIEVAL_MIN_SIMILARITY": "0.4",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/from-yaml.db", cfg.Storage.Path)
	assert.Equal(t, "chunk", cfg.Retrieval.Strategy)
	assert.Equal(t, 25, cfg.Retrieval.Limit, "process env wins over .env and yaml")
	assert.Equal(t, 2, cfg.Retrieval.Workers, ".env wins over defaults")
	assert.InDelta(t, 0.4, cfg.Retrieval.MinSimilarity, 1e-9)
	assert.Equal(t, "local", cfg.Embedding.Provider)
}

func TestRetrieverOptionsKeepsZeroThreshold(t *testing.T) {
	cfg, err := Load(LoadOptions{Environ: map[string]string{
		"REVIEWRECALL_EMBEDDING_PROVIDER":       "local",
		"REVIEWRECALL_RETRIEVAL_MIN_SIMILARITY": "0",
	}})
	require.NoError(t, err)

	opts := cfg.RetrieverOptions()
	require.NotNil(t, opts.MinSimilarity)
	assert.Zero(t, *opts.MinSimilarity)
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(LoadOptions{ConfigPath: filepath.Join(dir, "missing.yaml"), Environ: map[string]string{}})
	assert.Error(t, err)

	_, err = Load(LoadOptions{EnvFile: filepath.Join(dir, "missing.env"), Environ: map[string]string{}})
	assert.Error(t, err, "an explicit env file must exist")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }},
		{"mongo without uri", func(c *Config) { c.Storage.Driver = storage.BackendMongo }},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
		{"negative cache", func(c *Config) { c.Embedding.CacheSize = -1 }},
		{"unknown strategy", func(c *Config) { c.Retrieval.Strategy = "random" }},
		{"limit too large", func(c *Config) { c.Retrieval.Limit = searcher.MaxLimit + 1 }},
		{"zero page size", func(c *Config) { c.Retrieval.PageSize = 0 }},
		{"similarity above one", func(c *Config) { c.Retrieval.MinSimilarity = 1.5 }},
		{"zero workers", func(c *Config) { c.Retrieval.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMappings(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "SQLITE"
	cfg.Embedding.Provider = "Local"
	cfg.Retrieval.Strategy = "chunk"

	assert.Equal(t, "sqlite", cfg.StorageConfig().Driver)
	assert.Equal(t, "local", cfg.EmbedderConfig().Provider)

	opts := cfg.RetrieverOptions()
	assert.Equal(t, scoring.StrategyChunk, opts.Strategy)
	assert.Equal(t, cfg.Retrieval.Workers, opts.Workers)
}
