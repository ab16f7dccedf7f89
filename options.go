package ragdex

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/usecase/expand"
)

// Option configures the Engine.
type Option func(*engineConfig)

type engineConfig struct {
	driver   string // "", "redis" or "valkey"; empty keeps data in process memory
	addrs    []string
	password string

	embedder   Embedder
	model      string
	dimensions int

	generator  Generator
	translator Translator

	chunkSize    int
	chunkOverlap int

	semanticWeight float64
	thresholds     confidenceThresholds

	corpusLanguage string
	synonyms       map[language.Language]expand.Ruleset

	cacheTTL time.Duration

	logger *zap.Logger
}

type confidenceThresholds struct {
	high, medium, low float64
}

// WithRedis stores documents and chunk records in a Redis instance so
// the corpus survives restarts.
func WithRedis(addr, password string) Option {
	return func(c *engineConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithValkey stores documents and chunk records in a Valkey instance.
// Valkey speaks the Redis protocol, the same client serves both.
func WithValkey(addr, password string) Option {
	return func(c *engineConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithEmbedder sets the embedding provider, the model name used to tag
// the vector index and the vector dimensionality. Replaces the default
// feature-hashing embedder.
func WithEmbedder(e Embedder, model string, dimensions int) Option {
	return func(c *engineConfig) {
		c.embedder = e
		c.model = model
		c.dimensions = dimensions
	}
}

// WithGenerator sets the completion provider behind Answer. Without one,
// Answer fails with ErrGenerationUnavailable.
func WithGenerator(g Generator) Option {
	return func(c *engineConfig) {
		c.generator = g
	}
}

// WithTranslator enables the cross-language query variant during
// expansion.
func WithTranslator(t Translator) Option {
	return func(c *engineConfig) {
		c.translator = t
	}
}

// WithHashDimensions sets the vector dimensionality of the default
// feature-hashing embedder. Ignored when WithEmbedder is given.
// Default: 64.
func WithHashDimensions(dim int) Option {
	return func(c *engineConfig) {
		c.dimensions = dim
	}
}

// WithChunking sets the chunk size and overlap in bytes. Overlap must
// stay below half the size. Defaults: size 1000, overlap 200.
func WithChunking(size, overlap int) Option {
	return func(c *engineConfig) {
		c.chunkSize = size
		c.chunkOverlap = overlap
	}
}

// WithSemanticWeight sets the default fusion weight of the semantic
// index, in [0,1]. The lexical index carries the remainder.
// Default: 0.6. Per-request overrides still apply.
func WithSemanticWeight(w float64) Option {
	return func(c *engineConfig) {
		c.semanticWeight = w
	}
}

// WithConfidenceThresholds sets the label cutpoints, which must satisfy
// 0 < low < medium < high <= 1. Defaults: 0.75, 0.5, 0.25.
func WithConfidenceThresholds(high, medium, low float64) Option {
	return func(c *engineConfig) {
		c.thresholds = confidenceThresholds{high: high, medium: medium, low: low}
	}
}

// WithCorpusLanguage declares the dominant language of the indexed
// corpus; queries in other languages gain a translated variant when a
// Translator is configured. Default: "en".
func WithCorpusLanguage(lang string) Option {
	return func(c *engineConfig) {
		c.corpusLanguage = lang
	}
}

// WithSynonyms extends the expansion ruleset for one language. Values
// merge over the built-in rules; repeated calls accumulate.
func WithSynonyms(lang string, rules map[string][]string) Option {
	return func(c *engineConfig) {
		if c.synonyms == nil {
			c.synonyms = make(map[language.Language]expand.Ruleset)
		}
		merged := c.synonyms[language.Language(lang)]
		if merged == nil {
			merged = make(expand.Ruleset, len(rules))
		}
		for term, alts := range rules {
			merged[term] = append(merged[term], alts...)
		}
		c.synonyms[language.Language(lang)] = merged
	}
}

// WithResultCache enables fingerprint-keyed result caching with the
// given TTL. Cached sets are invalidated by corpus version, so writes
// are visible immediately regardless of TTL.
func WithResultCache(ttl time.Duration) Option {
	return func(c *engineConfig) {
		c.cacheTTL = ttl
	}
}

// WithLogger enables structured logging for engine operations.
// Default: no logging.
func WithLogger(l *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = l
	}
}
