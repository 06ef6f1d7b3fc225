package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables consulted by NewFromEnv and DetectProvider
const (
	EnvProvider     = "REVIEWRECALL_EMBEDDING_PROVIDER"
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvOllamaURL    = "OLLAMA_HOST"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int
	CacheSize int // 0 disables the cache wrapper
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. REVIEWRECALL_EMBEDDING_PROVIDER (jina, openai, ollama, local)
// 2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 3. Default to local if no API keys found
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  DetectProvider(),
		BaseURL:   os.Getenv(EnvOllamaURL),
		Dimension: DefaultDimension,
		CacheSize: DefaultCacheSize,
	})
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	base, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		return NewCached(base, NewCache(cfg.CacheSize)), nil
	}
	return base, nil
}

func newProvider(cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		p, err := NewJinaProvider(cfg.APIKey, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		if cfg.BaseURL != "" {
			p.WithEndpoint(cfg.BaseURL)
		}
		return p, nil
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		if cfg.BaseURL != "" {
			p.WithEndpoint(cfg.BaseURL)
		}
		return p, nil
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Dimension), nil
	case ProviderLocal, "":
		return NewLocalProvider(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}
