package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

// Provider configuration
const (
	ProviderService = "service"
	ProviderJina    = "jina"
	ProviderOpenAI  = "openai"
	ProviderLocal   = "local"

	// Environment variables
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	// Default models
	DefaultServiceModel = "all-MiniLM-L6-v2"
	DefaultJinaModel    = "jina-embeddings-v3"
	DefaultOpenAIModel  = "text-embedding-3-small"

	// Endpoints
	DefaultServiceURL = "http://localhost:3101"
	JinaURL           = "https://api.jina.ai/v1/embeddings"
	OpenAIURL         = "https://api.openai.com/v1/embeddings"

	// Dimensions
	ServiceDimension = 384
	JinaDimension    = 1024
	OpenAIDimension  = 1536
	LocalDimension   = 384

	// Batch limits
	DefaultBatchSize = 50
	ServiceMaxBatch  = 1000
	MaxBatchSize     = 100

	DefaultTimeout = 30 * time.Second
)

// ServiceProvider implements Embedder against the self-hosted embedding
// service (POST /embed, GET /health).
type ServiceProvider struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewServiceProvider creates an embedder for the embedding service at
// baseURL. A non-positive dimension disables the per-vector length check.
func NewServiceProvider(baseURL string, dimension int, timeout time.Duration, cache *Cache) (*ServiceProvider, error) {
	if baseURL == "" {
		baseURL = DefaultServiceURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &ServiceProvider{
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     DefaultServiceModel,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache: cache,
	}, nil
}

func (s *ServiceProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req, ServiceMaxBatch); err != nil {
		return nil, err
	}

	embeddings, err := resolveBatch(ctx, s.cache, req, s.model, s.dimension, func(ctx context.Context, texts []string) ([]*Embedding, error) {
		return s.callAPI(ctx, texts, req.Normalize)
	})
	if err != nil {
		return nil, err
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderService,
		Model:      s.model,
	}, nil
}

func (s *ServiceProvider) callAPI(ctx context.Context, texts []string, normalize bool) ([]*Embedding, error) {
	body, err := json.Marshal(map[string]interface{}{
		"texts":     texts,
		"normalize": normalize,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Embeddings [][]float32 `json:"embeddings"`
		Dimensions int         `json:"dimensions"`
		Model      string      `json:"model"`
		Count      int         `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	model := apiResp.Model
	if model == "" {
		model = s.model
	}

	embeddings := make([]*Embedding, len(apiResp.Embeddings))
	for i, vec := range apiResp.Embeddings {
		embeddings[i] = &Embedding{
			Vector:    vec,
			Dimension: len(vec),
			Provider:  ProviderService,
			Model:     model,
		}
	}

	return embeddings, nil
}

// Health calls GET /health.
func (s *ServiceProvider) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health status %d", resp.StatusCode)
	}

	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	if !h.OK {
		return &h, fmt.Errorf("embedding service reports not ok")
	}
	if s.dimension > 0 && h.Dimension > 0 && h.Dimension != s.dimension {
		return &h, fmt.Errorf("%w: service serves %d, configured %d", ErrDimensionMismatch, h.Dimension, s.dimension)
	}
	return &h, nil
}

func (s *ServiceProvider) MaxBatch() int {
	return ServiceMaxBatch
}

func (s *ServiceProvider) Dimension() int {
	if s.dimension > 0 {
		return s.dimension
	}
	return ServiceDimension
}

func (s *ServiceProvider) Provider() string {
	return ProviderService
}

func (s *ServiceProvider) Model() string {
	return s.model
}

func (s *ServiceProvider) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

// hostedProvider implements Embedder for OpenAI-compatible hosted APIs.
type hostedProvider struct {
	name       string
	url        string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// JinaProvider implements Embedder using Jina AI API
type JinaProvider struct {
	hostedProvider
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(apiKey string, cache *Cache) (*JinaProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}

	return &JinaProvider{hostedProvider{
		name:      ProviderJina,
		url:       JinaURL,
		apiKey:    apiKey,
		model:     DefaultJinaModel,
		dimension: JinaDimension,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		cache: cache,
	}}, nil
}

// OpenAIProvider implements Embedder using OpenAI API
type OpenAIProvider struct {
	hostedProvider
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(apiKey string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}

	return &OpenAIProvider{hostedProvider{
		name:      ProviderOpenAI,
		url:       OpenAIURL,
		apiKey:    apiKey,
		model:     DefaultOpenAIModel,
		dimension: OpenAIDimension,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		cache: cache,
	}}, nil
}

func (h *hostedProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req, MaxBatchSize); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = h.model
	}

	embeddings, err := resolveBatch(ctx, h.cache, req, model, h.dimension, func(ctx context.Context, texts []string) ([]*Embedding, error) {
		embs, err := h.callAPI(ctx, texts, model)
		if err != nil || !req.Normalize {
			return embs, err
		}
		for _, emb := range embs {
			if emb != nil {
				emb.Vector = NormalizeVector(emb.Vector)
			}
		}
		return embs, nil
	})
	if err != nil {
		return nil, err
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   h.name,
		Model:      model,
	}, nil
}

func (h *hostedProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	body, err := json.Marshal(map[string]interface{}{
		"input": texts,
		"model": model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Results may arrive out of order; place them by index.
	embeddings := make([]*Embedding, len(apiResp.Data))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		embeddings[data.Index] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  h.name,
			Model:     apiResp.Model,
		}
	}

	return embeddings, nil
}

func (h *hostedProvider) MaxBatch() int {
	return MaxBatchSize
}

func (h *hostedProvider) Dimension() int {
	return h.dimension
}

func (h *hostedProvider) Provider() string {
	return h.name
}

func (h *hostedProvider) Model() string {
	return h.model
}

func (h *hostedProvider) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider derives deterministic vectors from a text hash. It needs no
// network and is meant for development runs and tests.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(dimension int, cache *Cache) (*LocalProvider, error) {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     "local-hash",
		dimension: dimension,
		cache:     cache,
	}, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req, ServiceMaxBatch); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddings, err := resolveBatch(ctx, l.cache, req, l.model, l.dimension, func(ctx context.Context, texts []string) ([]*Embedding, error) {
		out := make([]*Embedding, len(texts))
		for i, text := range texts {
			vector := hashVector(text, l.dimension)
			if req.Normalize {
				vector = NormalizeVector(vector)
			}
			out[i] = &Embedding{
				Vector:    vector,
				Dimension: l.dimension,
				Provider:  ProviderLocal,
				Model:     l.model,
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

// hashVector stretches chained sha256 digests over dim components in [-1, 1).
func hashVector(text string, dim int) []float32 {
	vector := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))
	block := seed
	for i := 0; i < dim; i++ {
		off := (i * 4) % len(block)
		if i > 0 && off == 0 {
			block = sha256.Sum256(block[:])
		}
		u := binary.BigEndian.Uint32(block[off : off+4])
		vector[i] = float32(u)/float32(math.MaxUint32)*2 - 1
	}
	return vector
}

func (l *LocalProvider) MaxBatch() int {
	return ServiceMaxBatch
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
