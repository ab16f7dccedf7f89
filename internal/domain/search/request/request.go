// Package request defines validated search parameters.
package request

import (
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/domain/language"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 100
)

// Request is a validated search query.
type Request struct {
	query          string
	languageHint   language.Language
	topK           int
	semanticWeight float64
	useCache       bool
}

// New validates and normalizes search parameters.
// topK defaults to 5 and is clamped to 100. semanticWeight overrides the
// configured fusion weight when in [0,1]; pass a negative value to keep
// the configured default.
func New(
	query string,
	hint language.Language,
	topK int,
	semanticWeight float64,
	useCache bool,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if hint != language.Unknown && !hint.IsValid() {
		return Request{}, fmt.Errorf("unknown language hint: %q", hint)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if semanticWeight > 1 {
		return Request{}, fmt.Errorf("semantic_weight must be between 0 and 1")
	}
	if semanticWeight < 0 {
		semanticWeight = -1
	}

	return Request{
		query:          query,
		languageHint:   hint,
		topK:           topK,
		semanticWeight: semanticWeight,
		useCache:       useCache,
	}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// LanguageHint returns the declared query language, if any.
func (r *Request) LanguageHint() language.Language { return r.languageHint }

// TopK returns the number of results to return.
func (r *Request) TopK() int { return r.topK }

// WeightOverride returns the per-request semantic weight and whether one
// was set.
func (r *Request) WeightOverride() (float64, bool) {
	if r.semanticWeight < 0 {
		return 0, false
	}
	return r.semanticWeight, true
}

// UseCache reports whether the result cache may serve this request.
func (r *Request) UseCache() bool { return r.useCache }
