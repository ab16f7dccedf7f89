// Package catalog keeps the authoritative in-memory chunk records, the
// document-to-chunk mapping and the corpus version counter.
package catalog

import (
	"fmt"
	"sync"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
)

type docRecord struct {
	doc      document.Document
	chunkIDs []string
}

// Catalog is the single-process source of truth for chunk payloads.
// Every mutation bumps the corpus version; the version is part of each
// cache fingerprint, so entries computed against an older corpus become
// unreachable without an eviction sweep.
type Catalog struct {
	mu      sync.RWMutex
	chunks  map[string]chunk.Chunk
	docs    map[string]docRecord
	version uint64
}

// New creates an empty catalog at version zero.
func New() *Catalog {
	return &Catalog{
		chunks: make(map[string]chunk.Chunk),
		docs:   make(map[string]docRecord),
	}
}

// Version returns the current corpus version.
func (c *Catalog) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Restore seeds the version counter from persistence. Only allowed to
// move forward.
func (c *Catalog) Restore(version uint64) {
	c.mu.Lock()
	if version > c.version {
		c.version = version
	}
	c.mu.Unlock()
}

// ReplaceDocument atomically swaps the document's chunk set and bumps the
// version. Returns the chunk IDs that disappeared (for index cleanup) and
// the new version.
func (c *Catalog) ReplaceDocument(doc document.Document, chunks []chunk.Chunk) (removed []string, version uint64, err error) {
	if doc.ID() == "" {
		return nil, 0, fmt.Errorf("catalog replace: document ID is required")
	}
	for i := range chunks {
		if chunks[i].DocumentID() != doc.ID() {
			return nil, 0, fmt.Errorf("catalog replace: chunk %s belongs to %q, not %q",
				chunks[i].ID(), chunks[i].DocumentID(), doc.ID())
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make(map[string]bool, len(chunks))
	ids := make([]string, len(chunks))
	for i := range chunks {
		id := chunks[i].ID()
		ids[i] = id
		kept[id] = true
	}
	if old, ok := c.docs[doc.ID()]; ok {
		for _, id := range old.chunkIDs {
			if !kept[id] {
				removed = append(removed, id)
			}
			delete(c.chunks, id)
		}
	}
	for i := range chunks {
		c.chunks[chunks[i].ID()] = chunks[i]
	}
	c.docs[doc.ID()] = docRecord{doc: doc, chunkIDs: ids}
	c.version++
	return removed, c.version, nil
}

// DeleteDocument removes the document and its chunks and bumps the
// version. Returns the removed chunk IDs.
func (c *Catalog) DeleteDocument(docID string) ([]string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.docs[docID]
	if !ok {
		return nil, 0, fmt.Errorf("catalog delete %q: %w", docID, domain.ErrDocumentNotFound)
	}
	for _, id := range rec.chunkIDs {
		delete(c.chunks, id)
	}
	delete(c.docs, docID)
	c.version++
	return rec.chunkIDs, c.version, nil
}

// Document returns the document and its position-ordered chunks.
func (c *Catalog) Document(docID string) (document.Document, []chunk.Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.docs[docID]
	if !ok {
		return document.Document{}, nil, fmt.Errorf("catalog get %q: %w", docID, domain.ErrDocumentNotFound)
	}
	chunks := make([]chunk.Chunk, 0, len(rec.chunkIDs))
	for _, id := range rec.chunkIDs {
		if ch, ok := c.chunks[id]; ok {
			chunks = append(chunks, ch)
		}
	}
	return rec.doc, chunks, nil
}

// Chunks resolves chunk IDs to payloads, silently skipping unknown IDs:
// a concurrent delete between search and enrichment is not an error.
func (c *Catalog) Chunks(ids []string) []chunk.Chunk {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]chunk.Chunk, 0, len(ids))
	for _, id := range ids {
		if ch, ok := c.chunks[id]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// DocumentCount returns the number of stored documents.
func (c *Catalog) DocumentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// ChunkCount returns the number of stored chunks.
func (c *Catalog) ChunkCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}
