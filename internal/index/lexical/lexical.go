// Package lexical implements the in-process keyword index: per-chunk term
// frequencies with BM25 scoring.
package lexical

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Tokenize lowercases, folds diacritics and splits on anything that is
// not a letter or digit. Queries and chunk texts go through the same
// function so terms always align.
func Tokenize(text string) []string {
	folded := language.Fold(strings.ToLower(text))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

type docInfo struct {
	terms  map[string]int
	length int
	seq    uint64
}

// Index keeps an inverted posting list per term plus the corpus stats
// BM25 needs. Stats update incrementally on upsert and delete, touching
// only the chunk's own terms, never rescanning the corpus.
type Index struct {
	mu       sync.RWMutex
	postings map[string]map[string]int // term -> chunkID -> tf
	docs     map[string]docInfo
	totalLen int
	nextSeq  uint64
}

// New creates an empty lexical index.
func New() *Index {
	return &Index{
		postings: make(map[string]map[string]int),
		docs:     make(map[string]docInfo),
	}
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// AvgDocLen returns the average chunk length in terms.
func (ix *Index) AvgDocLen() float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(ix.docs) == 0 {
		return 0
	}
	return float64(ix.totalLen) / float64(len(ix.docs))
}

// Upsert indexes the chunk text, replacing any previous entry.
func (ix *Index) Upsert(chunkID, text string) error {
	if chunkID == "" {
		return fmt.Errorf("lexical upsert: chunk ID is required")
	}
	tokens := Tokenize(text)
	terms := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		terms[tok]++
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(chunkID)
	ix.nextSeq++
	ix.docs[chunkID] = docInfo{terms: terms, length: len(tokens), seq: ix.nextSeq}
	ix.totalLen += len(tokens)
	for term, tf := range terms {
		posting := ix.postings[term]
		if posting == nil {
			posting = make(map[string]int)
			ix.postings[term] = posting
		}
		posting[chunkID] = tf
	}
	return nil
}

// Delete removes the chunk and its postings. Reports whether it existed.
func (ix *Index) Delete(chunkID string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.removeLocked(chunkID)
}

func (ix *Index) removeLocked(chunkID string) bool {
	info, ok := ix.docs[chunkID]
	if !ok {
		return false
	}
	for term := range info.terms {
		posting := ix.postings[term]
		delete(posting, chunkID)
		if len(posting) == 0 {
			delete(ix.postings, term)
		}
	}
	ix.totalLen -= info.length
	delete(ix.docs, chunkID)
	return true
}

// Search scores chunks containing any of the terms and returns up to k
// hits by descending BM25 score. Equal scores keep insertion order.
// Deterministic on a frozen corpus.
func (ix *Index) Search(terms []string, k int) []result.Hit {
	if k <= 0 || len(terms) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	total := len(ix.docs)
	if total == 0 {
		return nil
	}
	avgdl := float64(ix.totalLen) / float64(total)

	seen := make(map[string]bool, len(terms))
	scores := make(map[string]float64)
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true
		posting := ix.postings[term]
		if len(posting) == 0 {
			continue
		}
		df := len(posting)
		idf := math.Log(1 + (float64(total)-float64(df)+0.5)/(float64(df)+0.5))
		for chunkID, tf := range posting {
			dl := float64(ix.docs[chunkID].length)
			norm := bm25K1 * (1 - bm25B + bm25B*dl/avgdl)
			scores[chunkID] += idf * (float64(tf) * (bm25K1 + 1)) / (float64(tf) + norm)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	type scored struct {
		id    string
		score float64
		seq   uint64
	}
	matches := make([]scored, 0, len(scores))
	for id, s := range scores {
		matches = append(matches, scored{id: id, score: s, seq: ix.docs[id].seq})
	}
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
		hits[n] = result.NewHit(m.id, m.score, result.Lexical, m.seq)
	}
	return hits
}
