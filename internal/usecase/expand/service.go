// Package expand rewrites a user query into a bounded set of search
// variants: synonym substitutions from per-language rulesets plus a
// translated variant when the query language differs from the corpus.
//
// Expansion is deterministic for a fixed ruleset and never blocks the
// search path: translator failures are absorbed and the original query
// always survives as variant zero.
package expand

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/domain/query"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// DefaultMaxVariants bounds the variant list including the original.
const DefaultMaxVariants = 5

// Config assembles an Expander.
type Config struct {
	// Translator provides the cross-language variant. Nil disables it.
	Translator Translator
	// CorpusLanguage is the dominant language of the indexed corpus.
	CorpusLanguage language.Language
	// MaxVariants caps the variant list including the original (default 5).
	MaxVariants int
	// Synonyms extends or overrides the built-in rulesets per language.
	Synonyms map[language.Language]Ruleset
}

// Expander turns a Query into an Expanded variant set.
type Expander struct {
	translator Translator
	corpusLang language.Language
	maxTotal   int
	rules      map[language.Language]Ruleset
	logger     *zap.Logger
}

// New creates an Expander with merged rulesets.
func New(cfg Config, logger *zap.Logger) *Expander {
	maxTotal := cfg.MaxVariants
	if maxTotal <= 0 {
		maxTotal = DefaultMaxVariants
	}
	corpusLang := cfg.CorpusLanguage
	if corpusLang == language.Unknown {
		corpusLang = language.English
	}
	return &Expander{
		translator: cfg.Translator,
		corpusLang: corpusLang,
		maxTotal:   maxTotal,
		rules:      mergeRules(cfg.Synonyms),
		logger:     logger,
	}
}

// Expand produces the variant set for q. The original text is always
// variant zero; synonym substitutions follow, then the translated
// variant. A translator failure downgrades to the synonym-only set and
// is reported through logs and metrics, never to the caller.
func (e *Expander) Expand(ctx context.Context, q query.Query) query.Expanded {
	normalized := q.Normalized()

	candidates := e.rules[q.Language()].substitutions(normalized)

	status := "full"
	if e.translator != nil && q.Language() != e.corpusLang {
		translated, err := e.translator.Translate(ctx, q.Text(), e.corpusLang)
		if err != nil {
			status = "fallback"
			e.logger.Warn("Query translation failed, expanding without it",
				zap.String("from", string(q.Language())),
				zap.String("to", string(e.corpusLang)),
				zap.Error(domain.ErrExpansionUnavailable),
				zap.NamedError("cause", err),
			)
		} else {
			candidates = append(candidates, translated)
		}
	}

	metrics.ExpansionsTotal.WithLabelValues(status).Inc()

	expanded := query.NewExpanded(q, candidates, e.maxTotal)

	e.logger.Debug("Query expanded",
		zap.String("language", string(q.Language())),
		zap.Int("variants", len(expanded.Variants())),
		zap.String("status", status),
	)

	return expanded
}
