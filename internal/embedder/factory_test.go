package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		jina     string
		openai   string
		want     string
	}{
		{"explicit", "Ollama", "", "", ProviderOllama},
		{"jina key", "", "j", "o", ProviderJina},
		{"openai key", "", "", "o", ProviderOpenAI},
		{"fallback", "", "", "", ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProvider, tt.provider)
			t.Setenv(EnvJinaAPIKey, tt.jina)
			t.Setenv(EnvOpenAIAPIKey, tt.openai)
			assert.Equal(t, tt.want, DetectProvider())
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("local without cache", func(t *testing.T) {
		emb, err := New(Config{Provider: "local", Dimension: 64})
		require.NoError(t, err)
		assert.IsType(t, &LocalProvider{}, emb)
		assert.Equal(t, 64, emb.Dimension())
	})

	t.Run("cache wrapper", func(t *testing.T) {
		emb, err := New(Config{Provider: "local", CacheSize: 10})
		require.NoError(t, err)
		cached, ok := emb.(*CachedEmbedder)
		require.True(t, ok)
		assert.Equal(t, DefaultDimension, cached.Dimension())
	})

	t.Run("ollama", func(t *testing.T) {
		emb, err := New(Config{Provider: "ollama", BaseURL: "http://ollama:11434"})
		require.NoError(t, err)
		assert.Equal(t, ProviderOllama, emb.Provider())
		assert.Equal(t, DefaultOllamaModel, emb.Model())
	})

	t.Run("openai with key", func(t *testing.T) {
		emb, err := New(Config{Provider: "openai", APIKey: "k", Model: "text-embedding-3-large"})
		require.NoError(t, err)
		assert.Equal(t, "text-embedding-3-large", emb.Model())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(Config{Provider: "word2vec"})
		assert.ErrorIs(t, err, ErrUnsupportedModel)
	})
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(EnvProvider, "local")
	emb, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())
	_, isCached := emb.(*CachedEmbedder)
	assert.True(t, isCached)
}
