// Package vector implements the in-process dense index: one normalized
// embedding per chunk with cosine-similarity search.
package vector

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

type entry struct {
	vec []float32
	seq uint64
}

// Index stores one vector per chunk. Vectors are normalized at upsert so
// search reduces to a dot product. The index is stamped with an
// embedding-model tag; upserts and lookups under a different tag are
// rejected until the corpus is reindexed.
//
// Upserts hold the write lock only for the map assignment, normalization
// happens outside it: a concurrent search observes the entry either
// before or after, never torn.
type Index struct {
	mu      sync.RWMutex
	dims    int
	tag     string
	entries map[string]entry
	nextSeq uint64
}

// New creates an empty index for the given dimensionality and model tag.
func New(dims int, tag string) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("vector index dims must be positive, got %d", dims)
	}
	if tag == "" {
		return nil, fmt.Errorf("vector index tag is required")
	}
	return &Index{dims: dims, tag: tag, entries: make(map[string]entry)}, nil
}

// Dims returns the fixed vector dimensionality.
func (i *Index) Dims() int { return i.dims }

// Tag returns the embedding-model version tag.
func (i *Index) Tag() string { return i.tag }

// Len returns the number of stored vectors.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Upsert stores the vector for a chunk, replacing any previous one.
func (i *Index) Upsert(chunkID string, vec []float32, tag string) error {
	if chunkID == "" {
		return fmt.Errorf("vector upsert: chunk ID is required")
	}
	if err := i.checkTag(tag); err != nil {
		return err
	}
	normalized, err := i.normalize(vec)
	if err != nil {
		return fmt.Errorf("vector upsert %s: %w", chunkID, err)
	}

	i.mu.Lock()
	i.nextSeq++
	i.entries[chunkID] = entry{vec: normalized, seq: i.nextSeq}
	i.mu.Unlock()
	return nil
}

// Delete removes the chunk's vector. Reports whether it existed.
func (i *Index) Delete(chunkID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.entries[chunkID]; !ok {
		return false
	}
	delete(i.entries, chunkID)
	return true
}

// Search returns up to k hits ordered by descending cosine similarity.
// Equal scores keep insertion order. The probe vector is normalized here,
// callers pass it as produced by the embedder.
func (i *Index) Search(vec []float32, k int, tag string) ([]result.Hit, error) {
	if err := i.checkTag(tag); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	probe, err := i.normalize(vec)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	i.mu.RLock()
	type scored struct {
		id    string
		score float64
		seq   uint64
	}
	matches := make([]scored, 0, len(i.entries))
	for id, e := range i.entries {
		matches = append(matches, scored{id: id, score: dot(probe, e.vec), seq: e.seq})
	}
	i.mu.RUnlock()

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].score != matches[b].score {
			return matches[a].score > matches[b].score
		}
		return matches[a].seq < matches[b].seq
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	hits := make([]result.Hit, len(matches))
	for n, m := range matches {
		hits[n] = result.NewHit(m.id, m.score, result.Semantic, m.seq)
	}
	return hits, nil
}

func (i *Index) checkTag(tag string) error {
	if tag != i.tag {
		return domain.NewVersionMismatch(i.tag, tag)
	}
	return nil
}

func (i *Index) normalize(vec []float32) ([]float32, error) {
	if len(vec) != i.dims {
		return nil, fmt.Errorf("expected %d dims, got %d: %w", i.dims, len(vec), domain.ErrVectorDimMismatch)
	}
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return nil, fmt.Errorf("zero vector cannot be normalized")
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(vec))
	for n, x := range vec {
		out[n] = float32(float64(x) * inv)
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for n := range a {
		sum += float64(a[n]) * float64(b[n])
	}
	return sum
}
