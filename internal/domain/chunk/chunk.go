// Package chunk defines the retrieval unit and the splitter that derives
// chunks from documents.
package chunk

import (
	"fmt"
	"strings"
)

// Chunk is an ordered text span of exactly one document (immutable value
// object). Overlap is the number of leading bytes shared with the previous
// chunk; stripping it during reassembly reproduces the document text.
type Chunk struct {
	docID      string
	position   int
	text       string
	tokenCount int
	overlap    int
}

// New validates and creates a Chunk.
func New(docID string, position int, text string, overlap int) (Chunk, error) {
	if docID == "" {
		return Chunk{}, fmt.Errorf("chunk document ID is required")
	}
	if position < 0 {
		return Chunk{}, fmt.Errorf("chunk position must be non-negative")
	}
	if text == "" {
		return Chunk{}, fmt.Errorf("chunk text is required")
	}
	if overlap < 0 || overlap >= len(text) {
		return Chunk{}, fmt.Errorf("chunk overlap %d out of range for %d-byte text", overlap, len(text))
	}
	return Chunk{
		docID:      docID,
		position:   position,
		text:       text,
		tokenCount: len(strings.Fields(text)),
		overlap:    overlap,
	}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(docID string, position int, text string, tokenCount, overlap int) Chunk {
	return Chunk{docID: docID, position: position, text: text, tokenCount: tokenCount, overlap: overlap}
}

// ID returns the chunk identifier, unique within the corpus.
func (c *Chunk) ID() string { return fmt.Sprintf("%s:%d", c.docID, c.position) }

// DocumentID returns the owning document identifier.
func (c *Chunk) DocumentID() string { return c.docID }

// Position returns the 0-based position within the document.
func (c *Chunk) Position() int { return c.position }

// Text returns the chunk text span.
func (c *Chunk) Text() string { return c.text }

// TokenCount returns the whitespace token count of the span.
func (c *Chunk) TokenCount() int { return c.tokenCount }

// Overlap returns the leading byte count shared with the previous chunk.
func (c *Chunk) Overlap() int { return c.overlap }

// Reassemble concatenates position-ordered chunks of one document with
// their declared overlap removed. Inverse of Splitter.Split.
func Reassemble(chunks []Chunk) (string, error) {
	var b strings.Builder
	for i := range chunks {
		c := &chunks[i]
		if c.position != i {
			return "", fmt.Errorf("chunk at index %d has position %d", i, c.position)
		}
		if i == 0 {
			b.WriteString(c.text)
			continue
		}
		if c.overlap > len(c.text) {
			return "", fmt.Errorf("chunk %s overlap %d exceeds text length", c.ID(), c.overlap)
		}
		b.WriteString(c.text[c.overlap:])
	}
	return b.String(), nil
}
