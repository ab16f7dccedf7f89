// Package search runs the hybrid retrieval pipeline: query expansion,
// parallel per-variant semantic and lexical searches, weighted RRF
// fusion, confidence scoring and result caching.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/confidence"
	"github.com/kailas-cloud/ragdex/internal/domain/query"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/index/lexical"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/repository/resultcache"
)

// DefaultVariantTimeout bounds the parallel variant search phase.
const DefaultVariantTimeout = 2 * time.Second

// Config tunes fusion and confidence scoring. Zero values fall back to
// the package defaults.
type Config struct {
	SemanticWeight float64
	RRFK           int
	AgreementBonus float64
	VariantTimeout time.Duration
	Thresholds     confidence.Thresholds
}

func (c Config) withDefaults() Config {
	if c.SemanticWeight <= 0 {
		c.SemanticWeight = DefaultSemanticWeight
	}
	if c.RRFK <= 0 {
		c.RRFK = DefaultRRFK
	}
	// Negative disables the bonus, zero means unset.
	if c.AgreementBonus < 0 {
		c.AgreementBonus = 0
	} else if c.AgreementBonus == 0 {
		c.AgreementBonus = DefaultAgreementBonus
	}
	if c.VariantTimeout <= 0 {
		c.VariantTimeout = DefaultVariantTimeout
	}
	if c.Thresholds == (confidence.Thresholds{}) {
		c.Thresholds = confidence.DefaultThresholds()
	}
	return c
}

// Service handles hybrid search over the dense and lexical indexes.
type Service struct {
	expander Expander
	embedder Embedder
	vectors  VectorIndex
	lexicon  LexicalIndex
	catalog  Catalog
	cache    Cache
	cfg      Config
	flight   singleflight.Group
	logger   *zap.Logger
}

// New creates a search service. cache may be nil to disable memoization.
func New(
	expander Expander,
	embedder Embedder,
	vectors VectorIndex,
	lexicon LexicalIndex,
	catalog Catalog,
	cache Cache,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		expander: expander,
		embedder: embedder,
		vectors:  vectors,
		lexicon:  lexicon,
		catalog:  catalog,
		cache:    cache,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Response is a fused result set with its answerability estimate.
type Response struct {
	Set        result.Set
	Confidence confidence.Score
	Cached     bool
}

// Search executes the full retrieval pipeline for one request.
// Embedding failures degrade the set to lexical-only, deadline expiry
// returns the completed variants marked partial; both are reflected in
// the confidence score instead of failing the request.
func (s *Service) Search(ctx context.Context, req *request.Request) (Response, error) {
	start := time.Now()

	q, err := query.New(req.Query(), req.LanguageHint(), start)
	if err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}

	wSem := s.cfg.SemanticWeight
	if override, ok := req.WeightOverride(); ok {
		wSem = override
	}
	opts := s.fusionOpts(wSem, req.TopK())

	version := s.catalog.Version()
	fp := resultcache.Fingerprint(resultcache.Params{
		Query:          q.Normalized(),
		Language:       q.Language(),
		TopK:           req.TopK(),
		SemanticWeight: wSem,
		CorpusVersion:  version,
		IndexTag:       s.vectors.Tag(),
	})

	cacheState := "bypass"
	if s.cache != nil && req.UseCache() {
		if set, ok := s.cache.Get(ctx, fp); ok {
			resp := Response{Set: set, Confidence: scoreConfidence(set, opts, s.cfg.Thresholds), Cached: true}
			s.observe(resp, "hit", time.Since(start))
			return resp, nil
		}
		cacheState = "miss"
	}

	// Concurrent identical queries share one retrieval.
	v, err, _ := s.flight.Do(fp, func() (interface{}, error) {
		set, err := s.retrieve(ctx, q, opts, version)
		if err != nil {
			return nil, err
		}
		// Degraded and partial sets are never cached: they would
		// outlive the failure that produced them.
		if s.cache != nil && !set.Degraded && !set.Partial {
			s.cache.Put(ctx, fp, set)
		}
		return set, nil
	})
	if err != nil {
		return Response{}, err
	}
	set := v.(result.Set)

	resp := Response{Set: set, Confidence: scoreConfidence(set, opts, s.cfg.Thresholds)}
	s.observe(resp, cacheState, time.Since(start))

	s.logger.Debug("Search completed",
		zap.Int("variants", set.Variants),
		zap.Int("results", len(set.Results)),
		zap.Bool("degraded", set.Degraded),
		zap.Bool("partial", set.Partial),
		zap.String("confidence", string(resp.Confidence.Label())),
		zap.Duration("duration", time.Since(start)))
	return resp, nil
}

// retrieve expands the query, embeds the variants and fans the
// per-variant searches out under the variant deadline.
func (s *Service) retrieve(ctx context.Context, q query.Query, opts fusionOpts, version uint64) (result.Set, error) {
	exp := s.expander.Expand(ctx, q)
	variants := exp.Variants()

	var vecs [][]float32
	degraded := false
	if opts.semanticWeight > 0 {
		batch, err := s.embedder.BatchEmbed(ctx, variants)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return result.Set{}, fmt.Errorf("embed variants: %w", err)
			}
			s.logger.Warn("Embedding failed, search degrades to lexical-only", zap.Error(err))
			degraded = true
		case len(batch.Embeddings) != len(variants):
			s.logger.Warn("Embedding count mismatch, search degrades to lexical-only",
				zap.Int("want", len(variants)), zap.Int("got", len(batch.Embeddings)))
			degraded = true
		default:
			vecs = batch.Embeddings
		}
	}

	tag := s.vectors.Tag()
	slots := make([]variantHits, len(variants))
	done := make([]bool, len(variants))
	var semBroken atomic.Bool

	vctx, cancel := context.WithTimeout(ctx, s.cfg.VariantTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(vctx)
	for i := range variants {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var sem []result.Hit
			if vecs != nil {
				hits, err := s.vectors.Search(vecs[i], opts.topK, tag)
				if err != nil {
					semBroken.Store(true)
					s.logger.Warn("Vector search failed", zap.Int("variant", i), zap.Error(err))
				} else {
					sem = hits
				}
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			var lex []result.Hit
			if opts.lexicalWeight > 0 {
				lex = s.lexicon.Search(lexical.Tokenize(variants[i]), opts.topK)
			}
			slots[i] = variantHits{semantic: sem, lexical: lex}
			done[i] = true
			return nil
		})
	}

	partial := false
	if err := g.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return result.Set{}, fmt.Errorf("variant search: %w", err)
		}
		// Deadline, the query's or the variant budget: keep whatever
		// completed and mark the set partial.
		partial = true
	}

	completed := make([]variantHits, 0, len(variants))
	for i := range slots {
		if done[i] {
			completed = append(completed, slots[i])
		}
	}
	if degraded || semBroken.Load() {
		degraded = true
		for i := range completed {
			completed[i].semantic = nil
		}
		opts.semanticWeight, opts.lexicalWeight = 0, 1
	}

	return s.enrich(fuse(completed, opts), degraded, partial, len(completed), version), nil
}

// enrich resolves fused chunk IDs to payloads and assigns final ranks.
func (s *Service) enrich(fusedList []fused, degraded, partial bool, variants int, version uint64) result.Set {
	ids := make([]string, len(fusedList))
	for i := range fusedList {
		ids[i] = fusedList[i].chunkID
	}
	payloads := s.catalog.Chunks(ids)
	byID := make(map[string]chunk.Chunk, len(payloads))
	for _, ch := range payloads {
		byID[ch.ID()] = ch
	}

	results := make([]result.Ranked, 0, len(fusedList))
	for i := range fusedList {
		ch, ok := byID[fusedList[i].chunkID]
		if !ok {
			// Deleted between search and enrichment.
			continue
		}
		results = append(results, result.NewRanked(
			ch.ID(), ch.DocumentID(), ch.Position(), ch.Text(),
			fusedList[i].score, len(results)+1, fusedList[i].sources(),
		))
	}
	return result.Set{
		Results:  results,
		Degraded: degraded,
		Partial:  partial,
		Variants: variants,
		Version:  version,
	}
}

func (s *Service) fusionOpts(wSem float64, topK int) fusionOpts {
	return fusionOpts{
		semanticWeight: wSem,
		lexicalWeight:  1 - wSem,
		rrfK:           s.cfg.RRFK,
		agreementBonus: s.cfg.AgreementBonus,
		topK:           topK,
	}
}

func (s *Service) observe(resp Response, cache string, elapsed time.Duration) {
	mode := "hybrid"
	if resp.Set.Degraded {
		mode = "degraded"
	}
	metrics.SearchesTotal.WithLabelValues(mode, cache).Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	if resp.Set.Partial {
		metrics.SearchPartialTotal.Inc()
	}
	metrics.ConfidenceLabelTotal.WithLabelValues(string(resp.Confidence.Label())).Inc()
}
