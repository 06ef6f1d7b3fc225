// Package embedder turns review comments, queries and code chunks into
// fixed-length vectors.
//
// Every deployment fixes one dimension (384 by default) and every vector
// stored or compared must have exactly that length. Use Vector to embed a
// single text with that check applied:
//
//	vec, err := embedder.Vector(ctx, emb, "rows.Close() is never called")
//	if errors.Is(err, types.ErrEmbeddingUnavailable) {
//	    // degrade to an empty result
//	}
//
// # Providers
//
// The provider is chosen from configuration or the environment:
//
//  1. If REVIEWRECALL_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if JINA_API_KEY is set → use Jina AI
//  3. Else if OPENAI_API_KEY is set → use OpenAI
//  4. Else → fall back to the local hashing provider (offline mode)
//
// Jina and OpenAI are asked for vectors of the configured dimension.
// Ollama returns whatever its model produces, so the model must match
// (all-minilm yields 384). The local provider hashes word and bigram
// features with xxh3 and needs no network.
//
// # Caching
//
// Cache memoizes vectors keyed by the first 200 characters of the text and
// evicts the oldest insertion once full. NewCached puts a cache in front of
// any provider:
//
//	emb := embedder.NewCached(provider, embedder.NewCache(1000))
//
// New wraps the provider automatically when Config.CacheSize is positive.
//
// # Error Handling
//
// HTTP providers retry transient failures with exponential backoff. Client
// errors (other than 429) fail immediately:
//
//	_, err := emb.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // provider unavailable after retries
//	}
package embedder
