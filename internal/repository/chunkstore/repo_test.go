package chunkstore

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/db"
)

// --- Save ---

func TestSave_WritesChunksMetaVersion(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	doc, records := testRecords(t, "doc-1")

	var gotItems []db.HashSetItem
	var metaKey string
	var metaFields map[string]string
	var versionVal string
	step := 0
	chunkStep, metaStep := 0, 0

	ms.hsetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		step++
		chunkStep = step
		gotItems = items
		return nil
	}
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		step++
		metaStep = step
		metaKey = key
		metaFields = fields
		return nil
	}
	ms.setFn = func(_ context.Context, key string, value []byte) error {
		if key != "ragdex:version" {
			t.Errorf("unexpected version key: %s", key)
		}
		versionVal = string(value)
		return nil
	}

	if err := repo.Save(ctx, doc, records, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gotItems) != 2 {
		t.Fatalf("expected 2 chunk items, got %d", len(gotItems))
	}
	if gotItems[0].Key != "ragdex:chunk:doc-1:0" || gotItems[1].Key != "ragdex:chunk:doc-1:1" {
		t.Errorf("unexpected chunk keys: %s, %s", gotItems[0].Key, gotItems[1].Key)
	}
	if gotItems[0].Fields["text"] != "abcdef" || gotItems[0].Fields["overlap"] != "0" {
		t.Errorf("unexpected chunk fields: %v", gotItems[0].Fields)
	}
	if gotItems[1].Fields["overlap"] != "2" {
		t.Errorf("expected overlap=2, got %s", gotItems[1].Fields["overlap"])
	}
	if gotItems[0].Fields["index_tag"] != "test-model:2" {
		t.Errorf("expected index_tag, got %q", gotItems[0].Fields["index_tag"])
	}

	vec, err := bytesToVector(gotItems[0].Fields["vector"])
	if err != nil {
		t.Fatalf("vector roundtrip: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.1 || vec[1] != 0.2 {
		t.Errorf("unexpected vector after roundtrip: %v", vec)
	}

	if metaKey != "ragdex:doc:doc-1" {
		t.Errorf("unexpected meta key: %s", metaKey)
	}
	if metaFields["chunks"] != "2" || metaFields["language"] != "en" || metaFields["format"] != "txt" {
		t.Errorf("unexpected meta fields: %v", metaFields)
	}
	if metaStep <= chunkStep {
		t.Error("meta must be written after chunks")
	}
	if versionVal != "7" {
		t.Errorf("expected version 7, got %s", versionVal)
	}
}

func TestSave_NoChunks(t *testing.T) {
	repo, _ := newTestRepo(t)
	doc := testDocument(t, "doc-1", "x")

	if err := repo.Save(context.Background(), doc, nil, 1); err == nil {
		t.Fatal("expected error for empty records")
	}
}

func TestSave_ChunkWriteError(t *testing.T) {
	repo, ms := newTestRepo(t)
	doc, records := testRecords(t, "doc-1")

	ms.hsetMultiFn = func(_ context.Context, _ []db.HashSetItem) error {
		return errors.New("OOM")
	}
	metaWritten := false
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		metaWritten = true
		return nil
	}

	if err := repo.Save(context.Background(), doc, records, 1); err == nil {
		t.Fatal("expected error")
	}
	if metaWritten {
		t.Error("meta must not be written when chunk write fails")
	}
}

// --- RemoveStale / Delete ---

func TestRemoveStale(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotKeys []string
	ms.delMultiFn = func(_ context.Context, keys []string) error {
		gotKeys = keys
		return nil
	}

	err := repo.RemoveStale(context.Background(), []string{"doc-1:2", "doc-1:3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotKeys) != 2 || gotKeys[0] != "ragdex:chunk:doc-1:2" {
		t.Errorf("unexpected keys: %v", gotKeys)
	}
}

func TestRemoveStale_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.delMultiFn = func(_ context.Context, _ []string) error {
		t.Error("DelMulti must not be called for empty input")
		return nil
	}

	if err := repo.RemoveStale(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDelete_RemovesChunksMetaAndBumpsVersion(t *testing.T) {
	repo, ms := newTestRepo(t)

	var delMultiKeys []string
	var delKey string
	var versionVal string
	ms.delMultiFn = func(_ context.Context, keys []string) error {
		delMultiKeys = keys
		return nil
	}
	ms.delFn = func(_ context.Context, key string) error {
		delKey = key
		return nil
	}
	ms.setFn = func(_ context.Context, _ string, value []byte) error {
		versionVal = string(value)
		return nil
	}

	err := repo.Delete(context.Background(), "doc-1", []string{"doc-1:0", "doc-1:1"}, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(delMultiKeys) != 2 || delMultiKeys[1] != "ragdex:chunk:doc-1:1" {
		t.Errorf("unexpected chunk keys: %v", delMultiKeys)
	}
	if delKey != "ragdex:doc:doc-1" {
		t.Errorf("unexpected meta key: %s", delKey)
	}
	if versionVal != "9" {
		t.Errorf("expected version 9, got %s", versionVal)
	}
}

// --- Version ---

func TestVersion_FreshStore(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, db.ErrKeyNotFound
	}

	v, err := repo.Version(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0 {
		t.Errorf("expected 0, got %d", v)
	}
}

func TestVersion_Persisted(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.getFn = func(_ context.Context, key string) ([]byte, error) {
		if key != "ragdex:version" {
			t.Errorf("unexpected key: %s", key)
		}
		return []byte("42"), nil
	}

	v, err := repo.Version(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestVersion_Corrupt(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("not-a-number"), nil
	}

	if _, err := repo.Version(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- LoadAll ---

func TestLoadAll_ReassemblesDocuments(t *testing.T) {
	repo, ms := newTestRepo(t)
	_, records := testRecords(t, "doc-1")

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "ragdex:doc:*" {
			t.Errorf("unexpected pattern: %s", pattern)
		}
		return []string{"ragdex:doc:doc-1"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if keys[0] == "ragdex:doc:doc-1" {
			return []map[string]string{
				{"language": "en", "filename": "doc-1.txt", "format": "txt", "chunks": "2"},
			}, nil
		}
		// chunk keys
		if len(keys) != 2 || keys[0] != "ragdex:chunk:doc-1:0" || keys[1] != "ragdex:chunk:doc-1:1" {
			t.Errorf("unexpected chunk keys: %v", keys)
		}
		out := make([]map[string]string, len(records))
		for i, rec := range records {
			out[i] = buildChunkFields(rec)
		}
		return out, nil
	}

	docs, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}

	got := docs[0]
	if got.Doc.ID() != "doc-1" {
		t.Errorf("unexpected doc ID: %s", got.Doc.ID())
	}
	if got.Doc.Text() != "abcdefgh" {
		t.Errorf("reassembled text mismatch: %q", got.Doc.Text())
	}
	if len(got.Chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got.Chunks))
	}
	if got.Chunks[1].Chunk.Text() != "efgh" || got.Chunks[1].Chunk.Overlap() != 2 {
		t.Errorf("unexpected chunk 1: %+v", got.Chunks[1].Chunk)
	}
	if got.Chunks[0].Vector[0] != 0.1 {
		t.Errorf("unexpected vector: %v", got.Chunks[0].Vector)
	}
	if got.Chunks[0].IndexTag != "test-model:2" {
		t.Errorf("unexpected index tag: %q", got.Chunks[0].IndexTag)
	}
}

func TestLoadAll_EmptyStore(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return nil, nil
	}

	docs, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs != nil {
		t.Errorf("expected nil, got %v", docs)
	}
}

func TestLoadAll_SortsDocumentIDs(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"ragdex:doc:zeta", "ragdex:doc:alpha"}, nil
	}
	var metaOrder []string
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if len(keys) == 2 {
			metaOrder = keys
			return []map[string]string{
				{"language": "en", "chunks": "1"},
				{"language": "en", "chunks": "1"},
			}, nil
		}
		return []map[string]string{
			{"text": "hello", "tokens": "1", "overlap": "0", "vector": vectorToBytes([]float32{1})},
		}, nil
	}

	docs, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metaOrder) != 2 || metaOrder[0] != "ragdex:doc:alpha" || metaOrder[1] != "ragdex:doc:zeta" {
		t.Errorf("expected sorted meta keys, got %v", metaOrder)
	}
	if docs[0].Doc.ID() != "alpha" || docs[1].Doc.ID() != "zeta" {
		t.Errorf("expected sorted docs, got %s, %s", docs[0].Doc.ID(), docs[1].Doc.ID())
	}
}

func TestLoadAll_CorruptChunk(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"ragdex:doc:doc-1"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		if keys[0] == "ragdex:doc:doc-1" {
			return []map[string]string{{"language": "en", "chunks": "1"}}, nil
		}
		// missing text field
		return []map[string]string{{"tokens": "1", "overlap": "0"}}, nil
	}

	if _, err := repo.LoadAll(context.Background()); err == nil {
		t.Fatal("expected error for corrupt chunk")
	}
}
