package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchGot []string
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchGot = texts
	return BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}, s.err
}

func TestInstructionEmbedder_PrependsInstruction(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	emb := NewInstructionEmbedder(inner, "search_query: ")

	result, err := emb.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got[0] != "search_query: hello world" {
		t.Errorf("inner received %q", inner.got[0])
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
}

func TestInstructionEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: innerErr}, "p: ")

	if _, err := emb.Embed(context.Background(), "text"); !errors.Is(err, innerErr) {
		t.Errorf("err = %v, want wrapped provider error", err)
	}
}

func TestInstructionEmbedder_BatchUsesNativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{}
	emb := NewInstructionEmbedder(inner, "doc: ")

	_, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batchGot) != 2 || inner.batchGot[0] != "doc: a" || inner.batchGot[1] != "doc: b" {
		t.Errorf("batch received %v", inner.batchGot)
	}
	if len(inner.got) != 0 {
		t.Error("per-item Embed called despite native batch")
	}
}

func TestInstructionEmbedder_BatchFallsBack(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}, TotalTokens: 2}}
	emb := NewInstructionEmbedder(inner, "doc: ")

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Errorf("got %d embeddings", len(res.Embeddings))
	}
	if res.TotalTokens != 6 {
		t.Errorf("TotalTokens = %d, want summed usage", res.TotalTokens)
	}
	if inner.got[2] != "doc: c" {
		t.Errorf("inner received %v", inner.got)
	}
}

func TestBatchFallback_StopsOnError(t *testing.T) {
	inner := &stubEmbedder{err: errors.New("boom")}
	if _, err := BatchFallback(context.Background(), inner, []string{"a", "b"}); err == nil {
		t.Fatal("expected error")
	}
	if len(inner.got) != 1 {
		t.Errorf("Embed called %d times, want 1", len(inner.got))
	}
}

func TestVectorConfig_IndexTag(t *testing.T) {
	cfg := DefaultVectorConfig()
	if cfg.IndexTag() != "BAAI/bge-multilingual-gemma2:3584" {
		t.Errorf("IndexTag() = %q", cfg.IndexTag())
	}
	if cfg.DocumentInstruction == cfg.QueryInstruction {
		t.Error("document and query instructions must differ")
	}
}
