// Package result defines per-index hits and the fused ranked result set.
package result

// Source identifies the index that produced a hit.
type Source string

// Retrieval sources.
const (
	Semantic Source = "semantic"
	Lexical  Source = "lexical"
)

// Hit is a single match from one index for one query variant.
type Hit struct {
	chunkID string
	score   float64
	source  Source
	seq     uint64
}

// NewHit creates a hit. seq is the corpus write sequence of the chunk,
// used for recency tie-breaks during fusion.
func NewHit(chunkID string, score float64, source Source, seq uint64) Hit {
	return Hit{chunkID: chunkID, score: score, source: source, seq: seq}
}

// ChunkID returns the matched chunk identifier.
func (h *Hit) ChunkID() string { return h.chunkID }

// Score returns the index-native relevance score.
func (h *Hit) Score() float64 { return h.score }

// Source returns the producing index.
func (h *Hit) Source() Source { return h.source }

// Seq returns the corpus write sequence of the chunk.
func (h *Hit) Seq() uint64 { return h.seq }

// Ranked is one fused result enriched with its chunk payload.
type Ranked struct {
	chunkID  string
	docID    string
	position int
	text     string
	score    float64
	rank     int
	sources  []Source
}

// NewRanked creates a ranked result. rank is 1-based; sources lists the
// contributing indexes, semantic first when both agree.
func NewRanked(chunkID, docID string, position int, text string, score float64, rank int, sources []Source) Ranked {
	return Ranked{
		chunkID: chunkID, docID: docID, position: position,
		text: text, score: score, rank: rank, sources: sources,
	}
}

// ChunkID returns the chunk identifier.
func (r *Ranked) ChunkID() string { return r.chunkID }

// DocumentID returns the owning document identifier.
func (r *Ranked) DocumentID() string { return r.docID }

// Position returns the chunk position within its document.
func (r *Ranked) Position() int { return r.position }

// Text returns the chunk text span.
func (r *Ranked) Text() string { return r.text }

// Score returns the fused score.
func (r *Ranked) Score() float64 { return r.score }

// Rank returns the 1-based rank in the fused list.
func (r *Ranked) Rank() int { return r.rank }

// Sources returns the contributing indexes.
func (r *Ranked) Sources() []Source { return r.sources }

// HasSource reports whether the given index contributed to this result.
func (r *Ranked) HasSource(s Source) bool {
	for _, src := range r.sources {
		if src == s {
			return true
		}
	}
	return false
}

// Set is the fused result set handed to scoring and generation.
type Set struct {
	Results []Ranked
	// Degraded means the semantic side was unavailable and the set is
	// lexical-only.
	Degraded bool
	// Partial means some variants missed the deadline and their hits
	// are absent.
	Partial bool
	// Variants is the number of query variants whose searches completed
	// and contributed hits. Confidence scoring normalizes against it.
	Variants int
	// Version is the corpus version the set was computed at.
	Version uint64
}
