package ingest

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/index/catalog"
	"github.com/kailas-cloud/ragdex/internal/index/lexical"
	"github.com/kailas-cloud/ragdex/internal/index/vector"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/repository/chunkstore"
)

func TestMain(m *testing.M) {
	metrics.RegisterEngineMetrics()
	os.Exit(m.Run())
}

type mockEmbedder struct {
	fn    func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	calls int
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(ctx, texts)
	}
	// Авто-генерация: единичный вектор на каждый текст
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{1, 0}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: len(texts)}, nil
}

type mockChunkStore struct {
	saveFn        func(ctx context.Context, doc document.Document, records []chunkstore.ChunkRecord, version uint64) error
	removeStaleFn func(ctx context.Context, chunkIDs []string) error
	deleteFn      func(ctx context.Context, docID string, chunkIDs []string, version uint64) error
	versionFn     func(ctx context.Context) (uint64, error)
	loadAllFn     func(ctx context.Context) ([]chunkstore.DocumentRecord, error)
}

func (m *mockChunkStore) Save(ctx context.Context, doc document.Document, records []chunkstore.ChunkRecord, version uint64) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, doc, records, version)
	}
	return nil
}

func (m *mockChunkStore) RemoveStale(ctx context.Context, chunkIDs []string) error {
	if m.removeStaleFn != nil {
		return m.removeStaleFn(ctx, chunkIDs)
	}
	return nil
}

func (m *mockChunkStore) Delete(ctx context.Context, docID string, chunkIDs []string, version uint64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, docID, chunkIDs, version)
	}
	return nil
}

func (m *mockChunkStore) Version(ctx context.Context) (uint64, error) {
	if m.versionFn != nil {
		return m.versionFn(ctx)
	}
	return 0, nil
}

func (m *mockChunkStore) LoadAll(ctx context.Context) ([]chunkstore.DocumentRecord, error) {
	if m.loadAllFn != nil {
		return m.loadAllFn(ctx)
	}
	return nil, nil
}

// fixture wires a service around real indexes and mocked externals.
type fixture struct {
	svc     *Service
	emb     *mockEmbedder
	store   *mockChunkStore
	catalog *catalog.Catalog
	vectors *vector.Index
	lexicon *lexical.Index
}

const testIndexTag = "test-model:2"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sp, err := chunk.NewSplitter(40, 8)
	if err != nil {
		t.Fatalf("splitter: %v", err)
	}
	vix, err := vector.New(2, testIndexTag)
	if err != nil {
		t.Fatalf("vector index: %v", err)
	}

	f := &fixture{
		emb:     &mockEmbedder{},
		store:   &mockChunkStore{},
		catalog: catalog.New(),
		vectors: vix,
		lexicon: lexical.New(),
	}
	f.svc = New(sp, f.emb, f.vectors, f.lexicon, f.catalog, f.store, zap.NewNop())
	return f
}

func testDoc(t *testing.T, id, text string) document.Document {
	t.Helper()
	doc, err := document.New(id, text, language.English, document.Source{
		Filename: id + ".txt",
		Format:   "txt",
	})
	if err != nil {
		t.Fatalf("document.New(%q): %v", id, err)
	}
	return doc
}
