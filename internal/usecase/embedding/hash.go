package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/index/lexical"
)

// HashEmbedder vectorizes text by feature-hashing tokens into a fixed
// number of signed buckets and L2-normalizing the result. It is fully
// deterministic and needs no credentials, which makes it the provider
// behind credential-less configs. Similarity reflects token overlap
// only, nothing semantic.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash-based vectorizer. dims below 1 falls
// back to 8.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims < 1 {
		dims = 8
	}
	return &HashEmbedder{dims: dims}
}

// Embed implements domain.Embedder.
func (h *HashEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vec, tokens := h.vectorize(text)
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: tokens, TotalTokens: tokens}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (h *HashEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	total := 0
	for i, text := range texts {
		vec, tokens := h.vectorize(text)
		embeddings[i] = vec
		total += tokens
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, PromptTokens: total, TotalTokens: total}, nil
}

// HealthCheck implements domain.HealthChecker. Always healthy.
func (h *HashEmbedder) HealthCheck(context.Context) error { return nil }

func (h *HashEmbedder) vectorize(text string) ([]float32, int) {
	tokens := lexical.Tokenize(text)
	vec := make([]float32, h.dims)
	for _, tok := range tokens {
		hs := fnv.New32a()
		_, _ = hs.Write([]byte(tok))
		sum := hs.Sum32()
		// The top hash bit picks the sign so unrelated texts stay near
		// orthogonal instead of all pointing into the positive orthant.
		sign := float32(1)
		if sum&0x80000000 != 0 {
			sign = -1
		}
		vec[sum%uint32(h.dims)] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, len(tokens)
}
