// Package ingest drives the write path: split a document into chunks,
// vectorize them, swap them into the catalog and both indexes, and
// persist the records for startup rebuilds.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/repository/chunkstore"
)

// Service handles document ingestion, deletion and index rebuilds.
type Service struct {
	splitter chunk.Splitter
	embedder Embedder
	vectors  VectorIndex
	lexicon  LexicalIndex
	catalog  Catalog
	store    ChunkStore
	logger   *zap.Logger
}

// New creates an ingestion service.
func New(
	splitter chunk.Splitter, embedder Embedder,
	vectors VectorIndex, lexicon LexicalIndex,
	cat Catalog, store ChunkStore, logger *zap.Logger,
) *Service {
	return &Service{
		splitter: splitter,
		embedder: embedder,
		vectors:  vectors,
		lexicon:  lexicon,
		catalog:  cat,
		store:    store,
		logger:   logger,
	}
}

// Report summarizes a completed ingestion.
type Report struct {
	DocumentID    string
	Chunks        int
	RemovedChunks int
	Version       uint64
	TotalTokens   int
}

// Ingest replaces the document's chunk set everywhere: catalog, both
// indexes and the chunk store. Re-ingesting an existing ID swaps its
// chunks atomically from the catalog's point of view.
func (s *Service) Ingest(ctx context.Context, doc document.Document) (Report, error) {
	start := time.Now()

	report, err := s.ingest(ctx, doc)
	if err != nil {
		metrics.IngestsTotal.WithLabelValues("error").Inc()
		return Report{}, err
	}

	metrics.IngestsTotal.WithLabelValues("success").Inc()
	metrics.IngestChunksTotal.Add(float64(report.Chunks))
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("Document ingested",
		zap.String("document_id", report.DocumentID),
		zap.Int("chunks", report.Chunks),
		zap.Int("removed_chunks", report.RemovedChunks),
		zap.Uint64("version", report.Version),
		zap.Int("total_tokens", report.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return report, nil
}

func (s *Service) ingest(ctx context.Context, doc document.Document) (Report, error) {
	chunks, err := s.splitter.Split(doc)
	if err != nil {
		return Report{}, fmt.Errorf("split document: %w", err)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text()
	}

	embRes, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return Report{}, fmt.Errorf("vectorize chunks: %w", err)
	}
	if len(embRes.Embeddings) != len(chunks) {
		return Report{}, fmt.Errorf("vectorize chunks: got %d vectors for %d chunks", len(embRes.Embeddings), len(chunks))
	}
	for i := range embRes.Embeddings {
		if len(embRes.Embeddings[i]) != s.vectors.Dims() {
			return Report{}, fmt.Errorf("chunk %s: got %d dimensions, want %d: %w",
				chunks[i].ID(), len(embRes.Embeddings[i]), s.vectors.Dims(), domain.ErrVectorDimMismatch)
		}
	}

	// The catalog swap happens only after every external call succeeded,
	// so a failed ingest never leaves a half-replaced document behind.
	removed, version, err := s.catalog.ReplaceDocument(doc, chunks)
	if err != nil {
		return Report{}, fmt.Errorf("register document: %w", err)
	}

	for _, id := range removed {
		s.vectors.Delete(id)
		s.lexicon.Delete(id)
	}

	tag := s.vectors.Tag()
	for i := range chunks {
		if err := s.vectors.Upsert(chunks[i].ID(), embRes.Embeddings[i], tag); err != nil {
			return Report{}, fmt.Errorf("index vector %s: %w", chunks[i].ID(), err)
		}
		if err := s.lexicon.Upsert(chunks[i].ID(), chunks[i].Text()); err != nil {
			return Report{}, fmt.Errorf("index terms %s: %w", chunks[i].ID(), err)
		}
	}

	records := make([]chunkstore.ChunkRecord, len(chunks))
	for i := range chunks {
		records[i] = chunkstore.ChunkRecord{
			Chunk:    chunks[i],
			Vector:   embRes.Embeddings[i],
			IndexTag: tag,
		}
	}
	if err := s.store.Save(ctx, doc, records, version); err != nil {
		return Report{}, fmt.Errorf("persist document: %w", err)
	}
	if err := s.store.RemoveStale(ctx, removed); err != nil {
		// Orphan chunk keys are invisible to rebuilds: the document meta
		// no longer counts them. Cleanup can wait for the next replace.
		s.logger.Warn("Stale chunk cleanup failed",
			zap.String("document_id", doc.ID()),
			zap.Int("chunks", len(removed)),
			zap.Error(err),
		)
	}

	return Report{
		DocumentID:    doc.ID(),
		Chunks:        len(chunks),
		RemovedChunks: len(removed),
		Version:       version,
		TotalTokens:   embRes.TotalTokens,
	}, nil
}

// Delete removes the document from the catalog, both indexes and the
// chunk store. Returns the new corpus version.
func (s *Service) Delete(ctx context.Context, docID string) (uint64, error) {
	removed, version, err := s.catalog.DeleteDocument(docID)
	if err != nil {
		return 0, err
	}

	for _, id := range removed {
		s.vectors.Delete(id)
		s.lexicon.Delete(id)
	}

	if err := s.store.Delete(ctx, docID, removed, version); err != nil {
		return 0, fmt.Errorf("remove persisted document: %w", err)
	}

	s.logger.Info("Document deleted",
		zap.String("document_id", docID),
		zap.Int("chunks", len(removed)),
		zap.Uint64("version", version),
	)
	return version, nil
}

// Get returns the document and its position-ordered chunks.
func (s *Service) Get(_ context.Context, docID string) (document.Document, []chunk.Chunk, error) {
	return s.catalog.Document(docID)
}

// Rebuild repopulates the catalog and both indexes from the chunk store.
// Vectors written under a different index tag belong to a retired
// embedding model: their chunks stay searchable lexically, but the
// vectors are skipped until the document is re-ingested.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	docs, err := s.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load persisted documents: %w", err)
	}

	tag := s.vectors.Tag()
	restored, stale := 0, 0
	for _, rec := range docs {
		chunks := make([]chunk.Chunk, len(rec.Chunks))
		for i := range rec.Chunks {
			chunks[i] = rec.Chunks[i].Chunk
		}
		if _, _, err := s.catalog.ReplaceDocument(rec.Doc, chunks); err != nil {
			return restored, fmt.Errorf("restore %s: %w", rec.Doc.ID(), err)
		}

		for i := range rec.Chunks {
			cr := rec.Chunks[i]
			if cr.IndexTag == tag {
				if err := s.vectors.Upsert(cr.Chunk.ID(), cr.Vector, tag); err != nil {
					return restored, fmt.Errorf("restore vector %s: %w", cr.Chunk.ID(), err)
				}
			} else {
				stale++
			}
			if err := s.lexicon.Upsert(cr.Chunk.ID(), cr.Chunk.Text()); err != nil {
				return restored, fmt.Errorf("restore terms %s: %w", cr.Chunk.ID(), err)
			}
		}
		restored++
	}

	version, err := s.store.Version(ctx)
	if err != nil {
		return restored, fmt.Errorf("restore version: %w", err)
	}
	s.catalog.Restore(version)

	if stale > 0 {
		s.logger.Warn("Skipped vectors from a retired embedding model, re-ingest affected documents",
			zap.Int("chunks", stale),
			zap.String("index_tag", tag),
		)
	}
	s.logger.Info("Indexes rebuilt",
		zap.Int("documents", restored),
		zap.Uint64("version", version),
	)
	return restored, nil
}
