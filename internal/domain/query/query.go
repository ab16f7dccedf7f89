// Package query defines the search query and its expanded variant set.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
)

// MaxLength is the maximum query length in bytes.
const MaxLength = 4096

// Query is a user question (immutable value object).
type Query struct {
	text     string
	lang     language.Language
	issuedAt time.Time
}

// New validates and creates a Query. An empty language hint triggers
// detection from the text.
func New(text string, hint language.Language, issuedAt time.Time) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, fmt.Errorf("query text is required: %w", domain.ErrInvalidArgument)
	}
	if len(text) > MaxLength {
		return Query{}, fmt.Errorf("query too long (max %d bytes): %w", MaxLength, domain.ErrInvalidArgument)
	}
	if hint != language.Unknown && !hint.IsValid() {
		return Query{}, fmt.Errorf("unknown language hint %q: %w", hint, domain.ErrInvalidArgument)
	}
	if hint == language.Unknown {
		hint = language.Detect(text)
	}
	return Query{text: text, lang: hint, issuedAt: issuedAt}, nil
}

// Text returns the trimmed query text.
func (q *Query) Text() string { return q.text }

// Language returns the declared or detected query language.
func (q *Query) Language() language.Language { return q.lang }

// IssuedAt returns the query timestamp.
func (q *Query) IssuedAt() time.Time { return q.issuedAt }

// Normalized returns the fingerprint form of the query text.
func (q *Query) Normalized() string { return language.Normalize(q.text) }

// Expanded is a Query plus its ordered search variants. The original
// text is always variant zero; the rest are deduplicated
// case-insensitively and capped by the expander configuration.
type Expanded struct {
	query    Query
	variants []string
}

// NewExpanded assembles the variant list. maxTotal caps the whole list
// including the original; zero means no cap.
func NewExpanded(q Query, candidates []string, maxTotal int) Expanded {
	variants := []string{q.Text()}
	seen := map[string]bool{strings.ToLower(q.Text()): true}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if maxTotal > 0 && len(variants) >= maxTotal {
			break
		}
		key := strings.ToLower(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		variants = append(variants, c)
	}
	return Expanded{query: q, variants: variants}
}

// Query returns the original query.
func (e *Expanded) Query() Query { return e.query }

// Variants returns the ordered variant texts, original first.
func (e *Expanded) Variants() []string { return e.variants }
