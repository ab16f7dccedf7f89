// Package answer composes retrieved context into a grounded prompt and
// delegates to the generation collaborator. Queries the corpus cannot
// support are refused with a fixed message, without spending a
// generation call.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain/confidence"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

const (
	// DefaultMaxContext caps how many ranked chunks enter the prompt.
	DefaultMaxContext = 5
	// MaxContextLimit is the ceiling for the per-request override.
	MaxContextLimit = 20
)

// Refusal is the fixed response for queries the indexed corpus cannot
// answer.
const Refusal = "I don't have enough information in the indexed documents to answer this."

// Config assembles an answer Service.
type Config struct {
	// MaxContext is the default number of chunks offered to the
	// generator (default 5, capped at 20).
	MaxContext int
}

func (c Config) withDefaults() Config {
	if c.MaxContext <= 0 {
		c.MaxContext = DefaultMaxContext
	}
	if c.MaxContext > MaxContextLimit {
		c.MaxContext = MaxContextLimit
	}
	return c
}

// Service answers questions grounded in retrieved chunks.
type Service struct {
	retriever Retriever
	generator Generator
	cfg       Config
	logger    *zap.Logger
}

// New creates an answer service over the given retriever and generator.
func New(retriever Retriever, generator Generator, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Response is an answer with the context set that produced it.
type Response struct {
	// Answer is the generated text, or Refusal when Refused is set.
	Answer string
	// Refused reports that the evidence was too weak to generate.
	Refused bool
	// Model names the generation model; empty on refusal.
	Model string
	// Set is the ranked context offered to the generator.
	Set result.Set
	// Confidence is the retrieval confidence backing the answer.
	Confidence confidence.Score
	// Cached reports whether the context came from the result cache.
	Cached bool
}

// Answer retrieves context for the request and generates a grounded
// answer. maxContext overrides the configured context size when
// positive. Retrieval confidence below the answerable floor refuses
// without calling the generator.
func (s *Service) Answer(ctx context.Context, req *request.Request, maxContext int) (Response, error) {
	sres, err := s.retriever.Search(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("answer: %w", err)
	}

	if !sres.Confidence.Answerable() || len(sres.Set.Results) == 0 {
		metrics.AnswersTotal.WithLabelValues("refused").Inc()
		s.logger.Debug("Answer refused",
			zap.String("confidence", string(sres.Confidence.Label())),
			zap.Int("results", len(sres.Set.Results)))
		return Response{
			Answer:     Refusal,
			Refused:    true,
			Set:        sres.Set,
			Confidence: sres.Confidence,
			Cached:     sres.Cached,
		}, nil
	}

	limit := s.cfg.MaxContext
	if maxContext > 0 {
		limit = maxContext
		if limit > MaxContextLimit {
			limit = MaxContextLimit
		}
	}
	chunks := sres.Set.Results
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}

	gen, err := s.generator.Generate(ctx, buildPrompt(req.Query(), chunks))
	if err != nil {
		return Response{}, fmt.Errorf("answer: %w", err)
	}

	metrics.AnswersTotal.WithLabelValues("answered").Inc()
	return Response{
		Answer:     gen.Text,
		Model:      gen.Model,
		Set:        sres.Set,
		Confidence: sres.Confidence,
		Cached:     sres.Cached,
	}, nil
}

// buildPrompt lays the chunks out as numbered context blocks with the
// grounding rules ahead of them. The model is told to refuse with the
// exact Refusal text so an evasive completion stays recognizable.
func buildPrompt(question string, chunks []result.Ranked) string {
	var b strings.Builder
	b.WriteString("You are a retrieval assistant. Answer using ONLY the context blocks below.\n")
	b.WriteString("Do not use outside knowledge and do not speculate.\n")
	b.WriteString("If the context does not contain the answer, reply exactly: ")
	b.WriteString(Refusal)
	b.WriteString("\n")
	b.WriteString("Answer in the language of the question. Be concise.\n\n")
	b.WriteString("Context:\n")
	for i := range chunks {
		ch := &chunks[i]
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, ch.ChunkID(), ch.Text())
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)
	return b.String()
}
