package search

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/query"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Expander produces the ordered query variant list, original first.
type Expander interface {
	Expand(ctx context.Context, q query.Query) query.Expanded
}

// Embedder vectorizes the query variants in one call.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// VectorIndex runs dense retrieval against the active embedding model.
type VectorIndex interface {
	Search(vec []float32, k int, tag string) ([]result.Hit, error)
	Tag() string
}

// LexicalIndex runs BM25 retrieval over tokenized terms.
type LexicalIndex interface {
	Search(terms []string, k int) []result.Hit
}

// Catalog resolves chunk IDs to payloads and exposes the corpus version.
type Catalog interface {
	Chunks(ids []string) []chunk.Chunk
	Version() uint64
}

// Cache memoizes fused result sets by fingerprint. May be nil.
type Cache interface {
	Get(ctx context.Context, fingerprint string) (result.Set, bool)
	Put(ctx context.Context, fingerprint string, set result.Set)
}
