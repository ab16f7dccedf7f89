package ingest

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/repository/chunkstore"
)

// Embedder vectorizes chunk texts in bulk.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// VectorIndex is the embedding index mutation contract.
type VectorIndex interface {
	Upsert(chunkID string, vec []float32, tag string) error
	Delete(chunkID string) bool
	Tag() string
	Dims() int
}

// LexicalIndex is the term index mutation contract.
type LexicalIndex interface {
	Upsert(chunkID, text string) error
	Delete(chunkID string) bool
}

// Catalog owns chunk payloads, document membership and the corpus version.
type Catalog interface {
	ReplaceDocument(doc document.Document, chunks []chunk.Chunk) (removed []string, version uint64, err error)
	DeleteDocument(docID string) (removed []string, version uint64, err error)
	Document(docID string) (document.Document, []chunk.Chunk, error)
	Restore(version uint64)
}

// ChunkStore persists chunk records for startup rebuilds.
type ChunkStore interface {
	Save(ctx context.Context, doc document.Document, records []chunkstore.ChunkRecord, version uint64) error
	RemoveStale(ctx context.Context, chunkIDs []string) error
	Delete(ctx context.Context, docID string, chunkIDs []string, version uint64) error
	Version(ctx context.Context) (uint64, error)
	LoadAll(ctx context.Context) ([]chunkstore.DocumentRecord, error)
}
