package sdk

// Source describes where a document came from.
type Source struct {
	Filename string `json:"filename,omitempty"`
	Format   string `json:"format,omitempty"`
}

// IngestRequest is the document submission payload.
type IngestRequest struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Source   *Source `json:"source,omitempty"`
}

// IngestReport summarizes a completed ingestion.
type IngestReport struct {
	DocumentID    string `json:"document_id"`
	Chunks        int    `json:"chunks"`
	RemovedChunks int    `json:"removed_chunks,omitempty"`
	IndexVersion  uint64 `json:"index_version"`
	// EmbeddingTokens mirrors the X-Embedding-Tokens response header.
	EmbeddingTokens int `json:"-"`
}

// DocumentInfo describes a stored document.
type DocumentInfo struct {
	DocumentID string  `json:"document_id"`
	Language   string  `json:"language,omitempty"`
	Chunks     int     `json:"chunks"`
	Text       string  `json:"text"`
	Source     *Source `json:"source,omitempty"`
}

// SearchRequest parameterizes one retrieval call. Zero values keep the
// server defaults; SemanticWeight and UseCache distinguish unset from
// zero via pointers.
type SearchRequest struct {
	Query          string   `json:"query"`
	LanguageHint   string   `json:"language_hint,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
	SemanticWeight *float64 `json:"semantic_weight,omitempty"`
	UseCache       *bool    `json:"use_cache,omitempty"`
}

// AnswerRequest parameterizes one answer call.
type AnswerRequest struct {
	SearchRequest
	MaxContext int `json:"max_context,omitempty"`
}

// ScoredChunk is a single fused search hit.
type ScoredChunk struct {
	ChunkID    string   `json:"chunk_id"`
	DocumentID string   `json:"document_id"`
	Position   int      `json:"position"`
	Text       string   `json:"text"`
	Score      float64  `json:"score"`
	Rank       int      `json:"rank"`
	Sources    []string `json:"sources"`
}

// Confidence is the answerability estimate attached to a result set.
type Confidence struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// SearchResponse is a ranked result set with its confidence estimate.
type SearchResponse struct {
	Results      []ScoredChunk `json:"results"`
	Confidence   Confidence    `json:"confidence"`
	Degraded     bool          `json:"degraded"`
	Partial      bool          `json:"partial"`
	Cached       bool          `json:"cached"`
	IndexVersion uint64        `json:"index_version"`
}

// AnswerResponse is a generated answer with the retrieval behind it.
type AnswerResponse struct {
	Answer  string `json:"answer"`
	Refused bool   `json:"refused"`
	Model   string `json:"model,omitempty"`
	SearchResponse
}

// HealthReport is the component health summary. Status is "ok",
// "degraded" or "error"; Checks carries the per-component verdicts.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
