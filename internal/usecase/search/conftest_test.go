package search

import (
	"context"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/domain/query"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/index/catalog"
	"github.com/kailas-cloud/ragdex/internal/index/lexical"
	"github.com/kailas-cloud/ragdex/internal/index/vector"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEngineMetrics()
	os.Exit(m.Run())
}

const testIndexTag = "test-model:2"

// mockExpander returns the original query plus fixed candidates.
type mockExpander struct {
	candidates []string
	calls      int
}

func (m *mockExpander) Expand(_ context.Context, q query.Query) query.Expanded {
	m.calls++
	return query.NewExpanded(q, m.candidates, 5)
}

// mockBatchEmbedder maps every text to the same fixed vector.
type mockBatchEmbedder struct {
	fn    func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	err   error
	vec   []float32 // default [1,0]
	calls int
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(ctx, texts)
	}
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	vec := m.vec
	if vec == nil {
		vec = []float32{1, 0}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = vec
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

type mockCache struct {
	getFn func(ctx context.Context, fingerprint string) (result.Set, bool)
	putFn func(fingerprint string, set result.Set)
	gets  int
	puts  []string
	sets  []result.Set
}

func (m *mockCache) Get(ctx context.Context, fingerprint string) (result.Set, bool) {
	m.gets++
	if m.getFn != nil {
		return m.getFn(ctx, fingerprint)
	}
	return result.Set{}, false
}

func (m *mockCache) Put(_ context.Context, fingerprint string, set result.Set) {
	m.puts = append(m.puts, fingerprint)
	m.sets = append(m.sets, set)
	if m.putFn != nil {
		m.putFn(fingerprint, set)
	}
}

// fixture wires the service to real in-process indexes and mocked
// expander, embedder and cache.
type fixture struct {
	svc      *Service
	expander *mockExpander
	emb      *mockBatchEmbedder
	vectors  *vector.Index
	lexicon  *lexical.Index
	catalog  *catalog.Catalog
	cache    *mockCache
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	vec, err := vector.New(2, testIndexTag)
	if err != nil {
		t.Fatalf("vector.New: %v", err)
	}
	f := &fixture{
		expander: &mockExpander{},
		emb:      &mockBatchEmbedder{},
		vectors:  vec,
		lexicon:  lexical.New(),
		catalog:  catalog.New(),
		cache:    &mockCache{},
	}
	f.svc = New(f.expander, f.emb, f.vectors, f.lexicon, f.catalog, f.cache, cfg, zap.NewNop())
	return f
}

// seedDoc registers one document with per-position texts and vectors in
// the catalog and both indexes.
func seedDoc(t *testing.T, f *fixture, docID string, texts []string, vecs [][]float32) {
	t.Helper()
	doc, err := document.New(docID, strings.Join(texts, " "), language.English, document.Source{})
	if err != nil {
		t.Fatalf("document.New: %v", err)
	}
	chunks := make([]chunk.Chunk, len(texts))
	for i, text := range texts {
		ch, err := chunk.New(docID, i, text, 0)
		if err != nil {
			t.Fatalf("chunk.New: %v", err)
		}
		chunks[i] = ch
	}
	if _, _, err := f.catalog.ReplaceDocument(doc, chunks); err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}
	for i := range chunks {
		if vecs != nil {
			if err := f.vectors.Upsert(chunks[i].ID(), vecs[i], testIndexTag); err != nil {
				t.Fatalf("vector upsert: %v", err)
			}
		}
		if err := f.lexicon.Upsert(chunks[i].ID(), texts[i]); err != nil {
			t.Fatalf("lexical upsert: %v", err)
		}
	}
}

func mustRequest(t *testing.T, q string, topK int, semanticWeight float64, useCache bool) *request.Request {
	t.Helper()
	r, err := request.New(q, language.Unknown, topK, semanticWeight, useCache)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}
