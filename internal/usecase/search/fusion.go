package search

import (
	"math"
	"sort"

	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Fusion defaults. rrfK is the Reciprocal Rank Fusion constant (standard
// value from Cormack et al. 2009).
const (
	DefaultRRFK           = 60
	DefaultSemanticWeight = 0.6
	DefaultAgreementBonus = 0.25
)

// variantHits are the raw per-index results for one query variant.
type variantHits struct {
	semantic []result.Hit
	lexical  []result.Hit
}

// fusionOpts parameterize one fusion run. Weights must sum to 1; a
// zero-weight source is excluded entirely, its hits never enter the pool.
type fusionOpts struct {
	semanticWeight float64
	lexicalWeight  float64
	rrfK           int
	agreementBonus float64
	topK           int
}

// fused is one deduplicated chunk with its combined score.
type fused struct {
	chunkID  string
	score    float64
	seq      uint64
	semantic bool
	lexical  bool
}

func (f *fused) sources() []result.Source {
	out := make([]result.Source, 0, 2)
	if f.semantic {
		out = append(out, result.Semantic)
	}
	if f.lexical {
		out = append(out, result.Lexical)
	}
	return out
}

// fuse merges per-variant semantic and lexical hits via weighted
// Reciprocal Rank Fusion. Each appearance contributes
// w_src * 1/(rrfK + rank + 1), summed per chunk across variants and
// sources. A chunk both sources agree on within one variant earns
// agreementBonus * min(semantic, lexical contribution) on top.
// Output is deduplicated by chunk ID and sorted by fused score
// descending, ties broken by ingest recency then chunk ID.
func fuse(variants []variantHits, opts fusionOpts) []fused {
	merged := make(map[string]*fused)
	get := func(id string) *fused {
		f, ok := merged[id]
		if !ok {
			f = &fused{chunkID: id}
			merged[id] = f
		}
		return f
	}

	for v := range variants {
		var semContrib map[string]float64
		if opts.semanticWeight > 0 {
			semContrib = make(map[string]float64, len(variants[v].semantic))
			for rank, h := range variants[v].semantic {
				c := opts.semanticWeight / float64(opts.rrfK+rank+1)
				f := get(h.ChunkID())
				f.score += c
				f.semantic = true
				if h.Seq() > f.seq {
					f.seq = h.Seq()
				}
				semContrib[h.ChunkID()] = c
			}
		}
		if opts.lexicalWeight > 0 {
			for rank, h := range variants[v].lexical {
				c := opts.lexicalWeight / float64(opts.rrfK+rank+1)
				f := get(h.ChunkID())
				f.score += c
				f.lexical = true
				if h.Seq() > f.seq {
					f.seq = h.Seq()
				}
				if sc, ok := semContrib[h.ChunkID()]; ok {
					f.score += opts.agreementBonus * math.Min(sc, c)
				}
			}
		}
	}

	out := make([]fused, 0, len(merged))
	for _, f := range merged {
		out = append(out, *f)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].score != out[b].score {
			return out[a].score > out[b].score
		}
		if out[a].seq != out[b].seq {
			return out[a].seq > out[b].seq
		}
		return out[a].chunkID < out[b].chunkID
	})
	if opts.topK > 0 && len(out) > opts.topK {
		out = out[:opts.topK]
	}
	return out
}

// theoreticalMax is the fused score of a hypothetical chunk ranked first
// in every source for every variant, bonus included. The confidence
// scorer normalizes the observed top-1 against it.
func theoreticalMax(variants int, opts fusionOpts) float64 {
	if variants <= 0 {
		return 0
	}
	unit := 1.0 / float64(opts.rrfK+1)
	perVariant := (opts.semanticWeight + opts.lexicalWeight) * unit
	perVariant += opts.agreementBonus * math.Min(opts.semanticWeight, opts.lexicalWeight) * unit
	return float64(variants) * perVariant
}
