// Package chunkstore persists chunk records and document metadata so the
// in-process indexes can be rebuilt on startup without re-embedding.
package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
)

// store is the consumer interface for chunk persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// ChunkRecord pairs a chunk with its embedding vector and the index tag
// the vector was computed under.
type ChunkRecord struct {
	Chunk    chunk.Chunk
	Vector   []float32
	IndexTag string
}

// DocumentRecord is a fully loaded document with its chunks in position order.
type DocumentRecord struct {
	Doc    document.Document
	Chunks []ChunkRecord
}

// Repo implements chunk persistence over a hash/KV store.
type Repo struct {
	store store
}

// New creates a chunk store repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save persists a document's chunks, then its metadata, then the corpus
// version. Meta is written after the chunks so a crash mid-save leaves at
// most orphan chunk keys, never a registered document with missing chunks.
func (r *Repo) Save(ctx context.Context, doc document.Document, records []ChunkRecord, version uint64) error {
	if len(records) == 0 {
		return fmt.Errorf("save %s: no chunks", doc.ID())
	}

	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		items[i] = db.HashSetItem{
			Key:    chunkKey(rec.Chunk.ID()),
			Fields: buildChunkFields(rec),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("save chunks %s: %w", doc.ID(), err)
	}

	if err := r.store.HSet(ctx, docKey(doc.ID()), buildDocFields(doc, len(records))); err != nil {
		return fmt.Errorf("save meta %s: %w", doc.ID(), err)
	}

	return r.saveVersion(ctx, version)
}

// RemoveStale deletes chunk keys left over after a replace shrank a document.
func (r *Repo) RemoveStale(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	keys := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		keys[i] = chunkKey(id)
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("remove stale chunks: %w", err)
	}
	return nil
}

// Delete removes a document's metadata and all its chunk keys.
func (r *Repo) Delete(ctx context.Context, docID string, chunkIDs []string, version uint64) error {
	keys := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		keys[i] = chunkKey(id)
	}
	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete chunks %s: %w", docID, err)
	}
	if err := r.store.Del(ctx, docKey(docID)); err != nil {
		return fmt.Errorf("delete meta %s: %w", docID, err)
	}
	return r.saveVersion(ctx, version)
}

// Version returns the persisted corpus version, 0 for a fresh store.
func (r *Repo) Version(ctx context.Context) (uint64, error) {
	data, err := r.store.Get(ctx, versionKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load version: %w", err)
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version %q: %w", data, err)
	}
	return v, nil
}

// LoadAll returns every persisted document with its chunks, ordered by
// document ID. Document text is reassembled from the chunks.
func (r *Repo) LoadAll(ctx context.Context) ([]DocumentRecord, error) {
	keys, err := r.store.Scan(ctx, docKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	docIDs := make([]string, len(keys))
	for i, key := range keys {
		docIDs[i] = strings.TrimPrefix(key, docKeyPrefix)
	}
	sort.Strings(docIDs)

	docKeys := make([]string, len(docIDs))
	for i, id := range docIDs {
		docKeys[i] = docKey(id)
	}
	metas, err := r.store.HGetAllMulti(ctx, docKeys)
	if err != nil {
		return nil, fmt.Errorf("load metas: %w", err)
	}

	out := make([]DocumentRecord, 0, len(docIDs))
	for i, docID := range docIDs {
		rec, err := r.loadDocument(ctx, docID, metas[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Repo) loadDocument(ctx context.Context, docID string, meta map[string]string) (DocumentRecord, error) {
	lang, src, count, err := parseDocFields(docID, meta)
	if err != nil {
		return DocumentRecord{}, err
	}

	chunkKeys := make([]string, count)
	for pos := 0; pos < count; pos++ {
		chunkKeys[pos] = chunkKeyAt(docID, pos)
	}
	hashes, err := r.store.HGetAllMulti(ctx, chunkKeys)
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("load chunks %s: %w", docID, err)
	}

	records := make([]ChunkRecord, count)
	chunks := make([]chunk.Chunk, count)
	for pos, m := range hashes {
		rec, err := parseChunkFields(docID, pos, m)
		if err != nil {
			return DocumentRecord{}, err
		}
		records[pos] = rec
		chunks[pos] = rec.Chunk
	}

	text, err := chunk.Reassemble(chunks)
	if err != nil {
		return DocumentRecord{}, fmt.Errorf("reassemble %s: %w", docID, err)
	}

	return DocumentRecord{
		Doc:    document.Reconstruct(docID, text, lang, src),
		Chunks: records,
	}, nil
}

func (r *Repo) saveVersion(ctx context.Context, version uint64) error {
	if err := r.store.Set(ctx, versionKey, []byte(strconv.FormatUint(version, 10))); err != nil {
		return fmt.Errorf("save version: %w", err)
	}
	return nil
}
