// Package embedder generates vector embeddings for item texts.
//
// The default provider is the self-hosted embedding service, a small HTTP
// server wrapping a sentence-transformers model (all-MiniLM-L6-v2, 384
// dimensions). Jina AI and OpenAI are supported as hosted alternatives, and a
// hash-based local provider covers offline development.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  embedder.ProviderService,
//	    URL:       "http://localhost:3101",
//	    Dimension: 384,
//	    CacheSize: 10000,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts:     []string{"paneer tikka", "masala dosa"},
//	    Normalize: true,
//	})
//
// # Batch Semantics
//
// GenerateBatch is all or nothing: it returns one embedding per input text in
// input order, or an error. A count or dimension mismatch in the provider's
// answer is reported as an error rather than a short result. Providers never
// retry; callers decide what a failed batch means.
//
// Batch limits differ per provider:
//   - service: 1000 texts per call
//   - jina, openai: 100 texts per call
//   - local: 1000 texts per call
//
// # Provider Selection
//
// NewFromEnv selects a provider from the environment:
//
//  1. If SEARCHSYNC_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if EMBEDDING_SERVICE_URL is set → use the embedding service
//  3. Else if JINA_API_KEY is set → use Jina AI
//  4. Else if OPENAI_API_KEY is set → use OpenAI
//  5. Else → embedding service on localhost:3101
//
// # Caching
//
// Embeddings are cached in an LRU keyed by SHA-256 of model, normalization
// flag and text. A batch only sends cache misses to the provider.
package embedder
