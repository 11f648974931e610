package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrBatchTooLarge       = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled   = errors.New("no embedding provider configured")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
)

// Embedding represents a vector embedding with metadata
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // Content hash for caching
}

// BatchEmbeddingRequest represents a batch request
type BatchEmbeddingRequest struct {
	Texts     []string
	Normalize bool   // Ask for unit-length vectors
	Model     string // Optional: override default model
}

// BatchEmbeddingResponse represents a batch response
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder generates embeddings for batches of texts. A call either returns
// exactly one embedding per input text, in input order, or an error; there
// are no partial results.
type Embedder interface {
	// GenerateBatch generates embeddings for multiple texts
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// MaxBatch returns the largest number of texts accepted per call
	MaxBatch() int

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// Health describes a reachable embedding backend.
type Health struct {
	OK        bool   `json:"ok"`
	Model     string `json:"model"`
	Dimension int    `json:"dimensions"`
	Device    string `json:"device"`
}

// HealthChecker is implemented by providers that expose a liveness endpoint.
type HealthChecker interface {
	Health(ctx context.Context) (*Health, error)
}

// Cache provides in-memory LRU caching of embeddings by content hash
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates a new embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](10000)
	}
	return &Cache{
		cache: cache,
	}
}

// Get retrieves a deep copy of an embedding from cache
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}

	vectorCopy := make([]float32, len(emb.Vector))
	copy(vectorCopy, emb.Vector)

	return &Embedding{
		Vector:    vectorCopy,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
		Hash:      emb.Hash,
	}, true
}

// Set stores an embedding in cache with automatic LRU eviction
func (c *Cache) Set(hash string, emb *Embedding) {
	c.cache.Add(hash, emb)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes SHA-256 hash of text for caching
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// cacheKey scopes a text hash to the model and normalization flag, since the
// same text yields different vectors under either.
func cacheKey(model string, normalize bool, text string) string {
	flag := "raw"
	if normalize {
		flag = "norm"
	}
	return ComputeHash(model + "\x00" + flag + "\x00" + text)
}

// ValidateBatchRequest validates a batch embedding request against a limit
func ValidateBatchRequest(req BatchEmbeddingRequest, maxBatch int) error {
	if len(req.Texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}
	if maxBatch > 0 && len(req.Texts) > maxBatch {
		return fmt.Errorf("%w: %d texts, max %d allowed", ErrBatchTooLarge, len(req.Texts), maxBatch)
	}

	for i, text := range req.Texts {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: text at index %d: %v", ErrInvalidInput, i, ErrEmptyText)
		}
	}

	return nil
}

// fetchFunc embeds texts that missed the cache.
type fetchFunc func(ctx context.Context, texts []string) ([]*Embedding, error)

// resolveBatch serves what it can from cache and fetches the rest in one call.
// The fetched embeddings are checked for count and, when dimension is
// positive, for vector length before anything is cached.
func resolveBatch(ctx context.Context, cache *Cache, req BatchEmbeddingRequest, model string, dimension int, fetch fetchFunc) ([]*Embedding, error) {
	out := make([]*Embedding, len(req.Texts))
	keys := make([]string, len(req.Texts))

	var (
		missTexts []string
		missIdx   []int
	)
	for i, text := range req.Texts {
		keys[i] = cacheKey(model, req.Normalize, text)
		if cache != nil {
			if emb, ok := cache.Get(keys[i]); ok {
				out[i] = emb
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	fetched, err := fetch(ctx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(fetched) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(fetched), len(missTexts))
	}

	for j, emb := range fetched {
		if emb == nil || len(emb.Vector) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at index %d", ErrProviderFailed, missIdx[j])
		}
		if dimension > 0 && len(emb.Vector) != dimension {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb.Vector), dimension)
		}
	}

	for j, emb := range fetched {
		i := missIdx[j]
		emb.Hash = keys[i]
		out[i] = emb
		if cache != nil {
			cache.Set(keys[i], emb)
		}
	}

	return out, nil
}
