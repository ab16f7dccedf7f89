package ragdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/usecase/expand"
)

// Embedder converts text to vector embeddings. The default engine uses a
// deterministic feature-hashing embedder; pass a real provider through
// WithEmbedder for semantic retrieval quality.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
// Optional: when the provided Embedder also implements BatchEmbedder,
// ingestion uses it instead of one call per chunk.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Generator turns a grounded prompt into answer text. Required for
// Answer; Ingest and Search work without one.
type Generator interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult carries the generated text and usage counts.
type GenerationResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Translator produces the cross-language query variant during expansion.
// Optional: without one, expansion uses synonym rules only.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// embedderAdapter wraps a public Embedder to satisfy the internal
// domain contracts.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if b, ok := a.inner.(BatchEmbedder); ok {
		r, err := b.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		return domain.BatchEmbeddingResult{
			Embeddings:   r.Embeddings,
			PromptTokens: r.PromptTokens,
			TotalTokens:  r.TotalTokens,
		}, nil
	}
	return domain.BatchFallback(ctx, a, texts)
}

// generatorAdapter wraps a public Generator to satisfy the internal
// generation contract.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, prompt string) (domain.GenerationResult, error) {
	r, err := a.inner.Generate(ctx, prompt)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("generate: %w", err)
	}
	return domain.GenerationResult{
		Text:             r.Text,
		Model:            r.Model,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
	}, nil
}

// translatorAdapter wraps a public Translator for the expansion service.
type translatorAdapter struct {
	inner Translator
}

func (a *translatorAdapter) Translate(ctx context.Context, text string, to language.Language) (string, error) {
	return a.inner.Translate(ctx, text, string(to))
}

var _ expand.Translator = (*translatorAdapter)(nil)

// noopGenerator возвращает ошибку на Generate (Search работает, Answer
// вернёт ErrGenerationUnavailable).
type noopGenerator struct{}

func (noopGenerator) Generate(_ context.Context, _ string) (domain.GenerationResult, error) {
	return domain.GenerationResult{}, fmt.Errorf(
		"ragdex: generator not configured (use WithGenerator): %w", domain.ErrGenerationUnavailable,
	)
}
