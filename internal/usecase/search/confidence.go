package search

import (
	"github.com/kailas-cloud/ragdex/internal/domain/confidence"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Confidence heuristic constants. The scalar is a product of clamped
// factors, so each one can only lower the estimate.
const (
	// degradedPenalty applies when the set is lexical-only.
	degradedPenalty = 0.7
	// partialPenalty applies when some variants missed the deadline.
	partialPenalty = 0.85
	// gapFloor is the ambiguity discount when ranks 1 and 2 score
	// equally. RRF scores sit close together, an exact tie still
	// leaves most of the top-1 evidence intact.
	gapFloor = 0.8
	// gapSaturation is the relative gap at which rank 2 stops
	// mattering.
	gapSaturation = 0.4
)

// scoreConfidence estimates answerability for a fused set:
// top-1 score against the theoretical maximum for the active weights and
// completed variant count, discounted by rank-1/rank-2 ambiguity,
// degraded or partial retrieval, and a short result list.
func scoreConfidence(set result.Set, opts fusionOpts, t confidence.Thresholds) confidence.Score {
	if len(set.Results) == 0 {
		return confidence.New(0, t)
	}
	if set.Degraded {
		// Lexical-only fusion carried the full weight on one source.
		opts.semanticWeight, opts.lexicalWeight = 0, 1
	}
	max := theoreticalMax(set.Variants, opts)
	if max <= 0 {
		return confidence.New(0, t)
	}

	value := set.Results[0].Score() / max
	if value > 1 {
		value = 1
	}
	value *= gapFactor(set.Results)
	if set.Degraded {
		value *= degradedPenalty
	}
	if set.Partial {
		value *= partialPenalty
	}
	if n := len(set.Results); n < opts.topK {
		value *= float64(n) / float64(opts.topK)
	}
	return confidence.New(value, t)
}

// gapFactor maps the relative score gap between ranks 1 and 2 to a
// multiplier in [gapFloor, 1]. A single result has no runner-up to be
// confused with.
func gapFactor(results []result.Ranked) float64 {
	if len(results) < 2 {
		return 1
	}
	top := results[0].Score()
	if top <= 0 {
		return gapFloor
	}
	rel := (top - results[1].Score()) / top
	if rel > gapSaturation {
		rel = gapSaturation
	}
	return gapFloor + (1-gapFloor)*rel/gapSaturation
}
