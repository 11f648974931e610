package embedder

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	URL       string        // Embedding service base URL
	APIKey    string        // Hosted providers only
	Dimension int           // Expected vector length, 0 for the provider default
	Timeout   time.Duration // Per-request timeout
	CacheSize int           // 0 disables the cache
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. SEARCHSYNC_EMBEDDING_PROVIDER (service, jina, openai, local)
// 2. EMBEDDING_SERVICE_URL selects the embedding service
// 3. Check for API keys: JINA_API_KEY, OPENAI_API_KEY
// 4. Default to the embedding service on localhost
func NewFromEnv() (Embedder, error) {
	return New(Config{
		Provider:  DetectProvider(),
		URL:       os.Getenv("EMBEDDING_SERVICE_URL"),
		CacheSize: 10000,
	})
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case "", ProviderService:
		return NewServiceProvider(cfg.URL, cfg.Dimension, cfg.Timeout, cache)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache)
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache)
	case ProviderLocal:
		return NewLocalProvider(cfg.Dimension, cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv("SEARCHSYNC_EMBEDDING_PROVIDER")
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv("EMBEDDING_SERVICE_URL") != "" {
		return ProviderService
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderService
}
