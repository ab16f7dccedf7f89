// Package resultcache memoizes fused result sets by query fingerprint.
// Entries are never invalidated in place: the corpus version inside every
// fingerprint makes stale entries unreachable, and TTL reclaims them.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

var cacheKeyPrefix = domain.KeyPrefix + "cache:"

// DefaultTTL keeps entries short-lived: the indexes mutate on ingestion.
const DefaultTTL = 5 * time.Minute

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Params are the inputs that determine a search outcome. Two searches with
// equal Params and an unchanged corpus return byte-identical result sets.
type Params struct {
	Query          string // normalized query text
	Language       language.Language
	TopK           int
	SemanticWeight float64
	CorpusVersion  uint64
	IndexTag       string
}

// Fingerprint hashes the search params into a stable cache key component.
func Fingerprint(p Params) string {
	h := sha256.New()
	for _, part := range []string{
		p.Query,
		string(p.Language),
		strconv.Itoa(p.TopK),
		strconv.FormatFloat(p.SemanticWeight, 'f', -1, 64),
		strconv.FormatUint(p.CorpusVersion, 10),
		p.IndexTag,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Cache stores fused result sets in a key-value store with TTL expiry.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a result cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Get returns the cached result set for a fingerprint, if present.
func (c *Cache) Get(ctx context.Context, fingerprint string) (result.Set, bool) {
	data, err := c.store.Get(ctx, cacheKeyPrefix+fingerprint)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached results", zap.String("fingerprint", fingerprint), zap.Error(err))
		}
		c.incCache("miss")
		return result.Set{}, false
	}

	set, err := unmarshalSet(data)
	if err != nil {
		c.logger.Warn("Failed to decode cached results", zap.String("fingerprint", fingerprint), zap.Error(err))
		c.incCache("miss")
		return result.Set{}, false
	}

	c.incCache("hit")
	return set, true
}

// Put stores a result set. Failures are logged, not returned: a broken
// cache must not fail the search path.
func (c *Cache) Put(ctx context.Context, fingerprint string, set result.Set) {
	data, err := marshalSet(set)
	if err != nil {
		c.logger.Warn("Failed to encode results for cache", zap.String("fingerprint", fingerprint), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, cacheKeyPrefix+fingerprint, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache results", zap.String("fingerprint", fingerprint), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// rankedDTO is the storage shape of one fused result.
type rankedDTO struct {
	ChunkID  string   `json:"chunk_id"`
	DocID    string   `json:"doc_id"`
	Position int      `json:"position"`
	Text     string   `json:"text"`
	Score    float64  `json:"score"`
	Rank     int      `json:"rank"`
	Sources  []string `json:"sources"`
}

type setDTO struct {
	Results  []rankedDTO `json:"results"`
	Degraded bool        `json:"degraded,omitempty"`
	Partial  bool        `json:"partial,omitempty"`
	Variants int         `json:"variants,omitempty"`
	Version  uint64      `json:"version"`
}

func marshalSet(set result.Set) ([]byte, error) {
	dto := setDTO{
		Results:  make([]rankedDTO, len(set.Results)),
		Degraded: set.Degraded,
		Partial:  set.Partial,
		Variants: set.Variants,
		Version:  set.Version,
	}
	for i := range set.Results {
		r := &set.Results[i]
		sources := make([]string, len(r.Sources()))
		for j, s := range r.Sources() {
			sources[j] = string(s)
		}
		dto.Results[i] = rankedDTO{
			ChunkID:  r.ChunkID(),
			DocID:    r.DocumentID(),
			Position: r.Position(),
			Text:     r.Text(),
			Score:    r.Score(),
			Rank:     r.Rank(),
			Sources:  sources,
		}
	}
	return json.Marshal(dto)
}

func unmarshalSet(data []byte) (result.Set, error) {
	var dto setDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return result.Set{}, err
	}

	set := result.Set{
		Results:  make([]result.Ranked, len(dto.Results)),
		Degraded: dto.Degraded,
		Partial:  dto.Partial,
		Variants: dto.Variants,
		Version:  dto.Version,
	}
	for i, r := range dto.Results {
		sources := make([]result.Source, len(r.Sources))
		for j, s := range r.Sources {
			sources[j] = result.Source(s)
		}
		set.Results[i] = result.NewRanked(r.ChunkID, r.DocID, r.Position, r.Text, r.Score, r.Rank, sources)
	}
	return set, nil
}
