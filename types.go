package ragdex

import (
	answeruc "github.com/kailas-cloud/ragdex/internal/usecase/answer"
	searchuc "github.com/kailas-cloud/ragdex/internal/usecase/search"
)

// Document is the ingestion input. ID and Text are required. Language
// is detected from the text when absent; Format, when given, must name
// a supported source format (txt, md, html, pdf, docx).
type Document struct {
	ID       string
	Text     string
	Language string
	Filename string
	Format   string
}

// IngestReport summarizes a completed ingestion.
type IngestReport struct {
	DocumentID    string
	Chunks        int
	RemovedChunks int
	IndexVersion  uint64
	TotalTokens   int
}

// DocumentInfo describes a stored document.
type DocumentInfo struct {
	ID       string
	Text     string
	Language string
	Filename string
	Format   string
	Chunks   int
}

// SearchOptions tune one retrieval call. The zero value (or nil) keeps
// the engine defaults.
type SearchOptions struct {
	// TopK is the number of results to return (default 5, capped at 100).
	TopK int
	// SemanticWeight overrides the fusion weight for this call when set.
	// Must be in [0,1]; 0 means pure lexical, 1 pure semantic.
	SemanticWeight *float64
	// Language hints the query language, bypassing detection.
	Language string
	// NoCache bypasses the result cache for this call.
	NoCache bool
}

// AnswerOptions tune one answer call.
type AnswerOptions struct {
	SearchOptions
	// MaxContext caps how many ranked chunks enter the prompt
	// (default 5, capped at 20).
	MaxContext int
}

// Label buckets retrieval confidence.
type Label string

// Confidence labels, strongest first.
const (
	LabelHigh         Label = "high"
	LabelMedium       Label = "medium"
	LabelLow          Label = "low"
	LabelInsufficient Label = "insufficient"
)

// Confidence is the answerability estimate attached to a result set.
type Confidence struct {
	// Score is the scalar estimate in [0,1].
	Score float64
	// Label is the bucketed score.
	Label Label
}

// Answerable reports whether the evidence supports generating an answer.
func (c Confidence) Answerable() bool { return c.Label != LabelInsufficient }

// ScoredChunk is a single fused search hit.
type ScoredChunk struct {
	ChunkID    string
	DocumentID string
	Position   int
	Text       string
	Score      float64
	Rank       int
	// Sources lists the contributing indexes: "semantic", "lexical" or both.
	Sources []string
}

// SearchResult is a ranked result set with its confidence estimate.
type SearchResult struct {
	Results    []ScoredChunk
	Confidence Confidence
	// Degraded means the semantic index was unavailable and the set is
	// lexical-only.
	Degraded bool
	// Partial means some query variants missed the deadline.
	Partial bool
	// Cached means the set came from the result cache.
	Cached bool
	// IndexVersion is the corpus version the set was computed at.
	IndexVersion uint64
}

// AnswerResult is a generated answer with the retrieval that grounded it.
type AnswerResult struct {
	// Answer is the generated text, or Refusal when Refused is set.
	Answer string
	// Refused reports that the evidence was too weak to generate.
	Refused bool
	// Model names the generation model; empty on refusal.
	Model string
	SearchResult
}

// Refusal is the fixed Answer text for queries the corpus cannot support.
const Refusal = answeruc.Refusal

func searchResultFrom(resp searchuc.Response) SearchResult {
	out := SearchResult{
		Results: make([]ScoredChunk, 0, len(resp.Set.Results)),
		Confidence: Confidence{
			Score: resp.Confidence.Value(),
			Label: Label(resp.Confidence.Label()),
		},
		Degraded:     resp.Set.Degraded,
		Partial:      resp.Set.Partial,
		Cached:       resp.Cached,
		IndexVersion: resp.Set.Version,
	}
	for i := range resp.Set.Results {
		r := &resp.Set.Results[i]
		sources := make([]string, 0, 2)
		for _, s := range r.Sources() {
			sources = append(sources, string(s))
		}
		out.Results = append(out.Results, ScoredChunk{
			ChunkID:    r.ChunkID(),
			DocumentID: r.DocumentID(),
			Position:   r.Position(),
			Text:       r.Text(),
			Score:      r.Score(),
			Rank:       r.Rank(),
			Sources:    sources,
		})
	}
	return out
}

func answerResultFrom(resp answeruc.Response) AnswerResult {
	return AnswerResult{
		Answer:  resp.Answer,
		Refused: resp.Refused,
		Model:   resp.Model,
		SearchResult: searchResultFrom(searchuc.Response{
			Set:        resp.Set,
			Confidence: resp.Confidence,
			Cached:     resp.Cached,
		}),
	}
}
