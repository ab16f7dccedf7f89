package chunkstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
)

const (
	chunkKeyPrefix = domain.KeyPrefix + "chunk:"
	docKeyPrefix   = domain.KeyPrefix + "doc:"
	versionKey     = domain.KeyPrefix + "version"
)

// chunkKey builds the hash key for a chunk ID ("<docID>:<position>").
func chunkKey(chunkID string) string {
	return chunkKeyPrefix + chunkID
}

func chunkKeyAt(docID string, position int) string {
	return fmt.Sprintf("%s%s:%d", chunkKeyPrefix, docID, position)
}

func docKey(docID string) string {
	return docKeyPrefix + docID
}

// buildChunkFields converts a chunk record into a flat map for HSET.
// Doc ID and position live in the key, not the fields. The index tag
// records which embedding model produced the vector, so a rebuild can
// spot vectors from a retired model.
func buildChunkFields(rec ChunkRecord) map[string]string {
	return map[string]string{
		"text":      rec.Chunk.Text(),
		"tokens":    strconv.Itoa(rec.Chunk.TokenCount()),
		"overlap":   strconv.Itoa(rec.Chunk.Overlap()),
		"vector":    vectorToBytes(rec.Vector),
		"index_tag": rec.IndexTag,
	}
}

// parseChunkFields converts a flat hash map back into a chunk record.
func parseChunkFields(docID string, position int, m map[string]string) (ChunkRecord, error) {
	text, ok := m["text"]
	if !ok || text == "" {
		return ChunkRecord{}, fmt.Errorf("chunk %s:%d: missing text", docID, position)
	}
	tokens, err := strconv.Atoi(m["tokens"])
	if err != nil {
		return ChunkRecord{}, fmt.Errorf("chunk %s:%d: bad tokens field: %w", docID, position, err)
	}
	overlap, err := strconv.Atoi(m["overlap"])
	if err != nil {
		return ChunkRecord{}, fmt.Errorf("chunk %s:%d: bad overlap field: %w", docID, position, err)
	}
	vec, err := bytesToVector(m["vector"])
	if err != nil {
		return ChunkRecord{}, fmt.Errorf("chunk %s:%d: %w", docID, position, err)
	}
	return ChunkRecord{
		Chunk:    chunk.Reconstruct(docID, position, text, tokens, overlap),
		Vector:   vec,
		IndexTag: m["index_tag"],
	}, nil
}

// buildDocFields converts document metadata into a flat map for HSET.
// Full text is not stored: chunks reassemble to it.
func buildDocFields(doc document.Document, chunkCount int) map[string]string {
	return map[string]string{
		"language": string(doc.Language()),
		"filename": doc.Source().Filename,
		"format":   doc.Source().Format,
		"chunks":   strconv.Itoa(chunkCount),
	}
}

// parseDocFields extracts document metadata from a flat hash map.
func parseDocFields(docID string, m map[string]string) (language.Language, document.Source, int, error) {
	count, err := strconv.Atoi(m["chunks"])
	if err != nil || count <= 0 {
		return "", document.Source{}, 0, fmt.Errorf("document %s: bad chunks field %q", docID, m["chunks"])
	}
	lang := language.Language(m["language"])
	src := document.Source{Filename: m["filename"], Format: m["format"]}
	return lang, src, count, nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) ([]float32, error) {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("bad vector payload: len=%d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
