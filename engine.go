package ragdex

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/db"
	dbMemory "github.com/kailas-cloud/ragdex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/confidence"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/index/catalog"
	"github.com/kailas-cloud/ragdex/internal/index/lexical"
	"github.com/kailas-cloud/ragdex/internal/index/vector"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/repository/chunkstore"
	"github.com/kailas-cloud/ragdex/internal/repository/resultcache"
	answeruc "github.com/kailas-cloud/ragdex/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	expanduc "github.com/kailas-cloud/ragdex/internal/usecase/expand"
	ingestuc "github.com/kailas-cloud/ragdex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultHashDimensions   = 64
)

// Engine is the embedded retrieval engine: both indexes, the document
// catalog and the retrieval pipeline in one process.
type Engine struct {
	store   db.Store
	ingest  *ingestuc.Service
	search  *searchuc.Service
	answers *answeruc.Service
	logger  *zap.Logger
}

// New creates an Engine. Without options it runs entirely in process
// memory with the deterministic feature-hashing embedder, so it needs
// no database and no credentials. Use WithRedis or WithValkey for a
// corpus that survives restarts, WithEmbedder for a real embedding
// provider and WithGenerator to enable Answer.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{}
	for _, o := range opts {
		o(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("ragdex: database not ready: %w", err)
	}

	e, err := wireEngine(store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return e, nil
}

func createStore(cfg *engineConfig) (db.Store, error) {
	switch cfg.driver {
	case "":
		return dbMemory.NewStore(), nil
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("ragdex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("ragdex: unknown driver %q", cfg.driver)
	}
}

// wireEngine assembles the services over an open store and rebuilds the
// in-memory indexes from whatever the store already holds.
func wireEngine(store db.Store, cfg *engineConfig) (*Engine, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dims := cfg.dimensions
	if dims <= 0 {
		dims = defaultHashDimensions
	}
	model := cfg.model
	var embedder domain.BatchEmbedder = embeddinguc.NewHashEmbedder(dims)
	if cfg.embedder != nil {
		embedder = &embedderAdapter{inner: cfg.embedder}
	} else if model == "" {
		model = "hash"
	}

	vectors, err := vector.New(dims, domain.VectorConfig{Model: model, Dimensions: dims}.IndexTag())
	if err != nil {
		return nil, fmt.Errorf("ragdex: create vector index: %w", err)
	}
	lexicon := lexical.New()
	cat := catalog.New()
	chunkRepo := chunkstore.New(store)

	size, overlap := cfg.chunkSize, cfg.chunkOverlap
	if size <= 0 {
		size = 1000
	}
	if overlap <= 0 {
		overlap = 200
	}
	splitter, err := chunk.NewSplitter(size, overlap)
	if err != nil {
		return nil, fmt.Errorf("ragdex: create splitter: %w", err)
	}

	ingestSvc := ingestuc.New(splitter, embedder, vectors, lexicon, cat, chunkRepo, logger)
	restored, err := ingestSvc.Rebuild(context.Background())
	if err != nil {
		return nil, fmt.Errorf("ragdex: rebuild indexes: %w", err)
	}
	if restored > 0 {
		logger.Info("Indexes rebuilt from store", zap.Int("documents", restored))
	}

	var translator expanduc.Translator
	if cfg.translator != nil {
		translator = &translatorAdapter{inner: cfg.translator}
	}
	expander := expanduc.New(expanduc.Config{
		Translator:     translator,
		CorpusLanguage: language.Language(cfg.corpusLanguage),
		Synonyms:       cfg.synonyms,
	}, logger)

	// Pass nil interface (not typed nil pointer!) when the cache is off.
	var cache searchuc.Cache
	if cfg.cacheTTL > 0 {
		cache = resultcache.New(store, cfg.cacheTTL, metrics.ResultCacheTotal, logger)
	}

	thresholds := confidence.DefaultThresholds()
	if cfg.thresholds != (confidenceThresholds{}) {
		thresholds = confidence.Thresholds{
			High:   cfg.thresholds.high,
			Medium: cfg.thresholds.medium,
			Low:    cfg.thresholds.low,
		}
		if err := thresholds.Validate(); err != nil {
			return nil, fmt.Errorf("ragdex: %w", err)
		}
	}
	searchSvc := searchuc.New(expander, embedder, vectors, lexicon, cat, cache, searchuc.Config{
		SemanticWeight: cfg.semanticWeight,
		Thresholds:     thresholds,
	}, logger)

	var generator answeruc.Generator = noopGenerator{}
	if cfg.generator != nil {
		generator = &generatorAdapter{inner: cfg.generator}
	}
	answerSvc := answeruc.New(searchSvc, generator, answeruc.Config{}, logger)

	return &Engine{
		store:   store,
		ingest:  ingestSvc,
		search:  searchSvc,
		answers: answerSvc,
		logger:  logger,
	}, nil
}

// Close releases the store connection.
func (e *Engine) Close() {
	if e.store != nil {
		e.store.Close()
	}
}

// Ping checks store connectivity.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Ingest chunks, embeds and indexes a document. Re-ingesting an
// existing ID replaces its chunk set atomically.
func (e *Engine) Ingest(ctx context.Context, doc Document) (IngestReport, error) {
	d, err := document.New(doc.ID, doc.Text, language.Language(doc.Language), document.Source{
		Filename: doc.Filename,
		Format:   doc.Format,
	})
	if err != nil {
		return IngestReport{}, fmt.Errorf("ingest: %w", err)
	}
	report, err := e.ingest.Ingest(ctx, d)
	if err != nil {
		return IngestReport{}, err
	}
	return IngestReport{
		DocumentID:    report.DocumentID,
		Chunks:        report.Chunks,
		RemovedChunks: report.RemovedChunks,
		IndexVersion:  report.Version,
		TotalTokens:   report.TotalTokens,
	}, nil
}

// DeleteDocument removes a document and its chunks from both indexes.
// Returns the corpus version after the removal.
func (e *Engine) DeleteDocument(ctx context.Context, docID string) (uint64, error) {
	return e.ingest.Delete(ctx, docID)
}

// Document returns a stored document with its chunk count.
func (e *Engine) Document(ctx context.Context, docID string) (DocumentInfo, error) {
	doc, chunks, err := e.ingest.Get(ctx, docID)
	if err != nil {
		return DocumentInfo{}, err
	}
	src := doc.Source()
	return DocumentInfo{
		ID:       doc.ID(),
		Text:     doc.Text(),
		Language: string(doc.Language()),
		Filename: src.Filename,
		Format:   src.Format,
		Chunks:   len(chunks),
	}, nil
}

// Rebuild drops the in-memory indexes and reconstructs them from the
// store. New already does this; call it to recover after manual store
// surgery.
func (e *Engine) Rebuild(ctx context.Context) (int, error) {
	return e.ingest.Rebuild(ctx)
}

// Search runs hybrid retrieval for one query. Embedding provider
// failures degrade the set to lexical-only instead of failing the call.
func (e *Engine) Search(ctx context.Context, query string, opts *SearchOptions) (SearchResult, error) {
	req, err := e.toRequest(query, opts)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}
	resp, err := e.search.Search(ctx, &req)
	if err != nil {
		return SearchResult{}, err
	}
	return searchResultFrom(resp), nil
}

// Answer retrieves context for the query and generates a grounded
// answer. Queries the corpus cannot support are refused with the fixed
// Refusal text instead of hallucinating.
func (e *Engine) Answer(ctx context.Context, query string, opts *AnswerOptions) (AnswerResult, error) {
	var so *SearchOptions
	maxContext := 0
	if opts != nil {
		so = &opts.SearchOptions
		maxContext = opts.MaxContext
	}
	req, err := e.toRequest(query, so)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("answer: %w", err)
	}
	resp, err := e.answers.Answer(ctx, &req, maxContext)
	if err != nil {
		return AnswerResult{}, err
	}
	return answerResultFrom(resp), nil
}

func (e *Engine) toRequest(query string, opts *SearchOptions) (request.Request, error) {
	topK := 0
	weight := -1.0
	lang := ""
	useCache := true
	if opts != nil {
		topK = opts.TopK
		if opts.SemanticWeight != nil {
			weight = *opts.SemanticWeight
		}
		lang = opts.Language
		useCache = !opts.NoCache
	}
	return request.New(query, language.Language(lang), topK, weight, useCache)
}
