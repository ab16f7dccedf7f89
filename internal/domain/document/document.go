package document

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxContentSize is the maximum document text size in bytes.
const MaxContentSize = 1 << 20 // 1MB

// knownFormats are the source formats the upstream decoders produce.
// An empty format means "plain text, origin unknown".
var knownFormats = map[string]bool{
	"txt": true, "md": true, "html": true, "pdf": true, "docx": true,
}

// Source describes where a document came from.
type Source struct {
	Filename string
	Format   string
}

// Document is the ingestion aggregate (immutable value object).
// Text is the already-decoded content; format decoding happens upstream.
type Document struct {
	id     string
	text   string
	lang   language.Language
	source Source
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars. Text: max 1MB; emptiness and binary
// garbage are reported by the chunker, which owns content-shape errors.
// Language: optional; detected from the text when unset.
func New(id, text string, lang language.Language, source Source) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > 256 {
		return Document{}, fmt.Errorf("document ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if len(text) > MaxContentSize {
		return Document{}, fmt.Errorf("text too large (max %d bytes)", MaxContentSize)
	}
	if f := strings.ToLower(source.Format); f != "" && !knownFormats[f] {
		return Document{}, fmt.Errorf("unknown source format %q: %w", source.Format, domain.ErrUnsupportedFormat)
	}
	if lang != language.Unknown && !lang.IsValid() {
		return Document{}, fmt.Errorf("unknown language %q", lang)
	}
	if lang == language.Unknown {
		lang = language.Detect(text)
	}

	return Document{id: id, text: text, lang: lang, source: source}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, text string, lang language.Language, source Source) Document {
	return Document{id: id, text: text, lang: lang, source: source}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Text returns the decoded document text.
func (d *Document) Text() string { return d.text }

// Language returns the declared or detected language.
func (d *Document) Language() language.Language { return d.lang }

// Source returns the origin metadata.
func (d *Document) Source() Source { return d.source }
