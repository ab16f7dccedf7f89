package chunk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
)

// Default splitter geometry, in bytes.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// boundaries are tried in order when ending a chunk: paragraph break,
// line break, sentence end, word gap.
var boundaries = []string{"\n\n", "\n", ". ", " "}

// Splitter cuts document text into overlapping chunks on semantic
// boundaries. Splitting is deterministic: the same text and geometry
// always produce the same chunk set.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter validates the geometry. Overlap must stay below half the
// chunk size, otherwise consecutive windows cannot be kept in order.
func NewSplitter(size, overlap int) (Splitter, error) {
	if size <= 0 {
		return Splitter{}, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return Splitter{}, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap*2 >= size {
		return Splitter{}, fmt.Errorf("chunk overlap %d must be less than half the size %d", overlap, size)
	}
	return Splitter{size: size, overlap: overlap}, nil
}

// Size returns the target chunk size in bytes.
func (s Splitter) Size() int { return s.size }

// Overlap returns the target overlap in bytes.
func (s Splitter) Overlap() int { return s.overlap }

// Split cuts the document into position-ordered chunks. Every byte of the
// text lands in at least one chunk; Reassemble inverts the operation
// exactly. Whitespace-only text is ErrEmptyDocument; invalid UTF-8 or NUL
// bytes mean an undecoded binary slipped past the upload pipeline and are
// ErrUnsupportedFormat.
func (s Splitter) Split(doc document.Document) ([]Chunk, error) {
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document %s: %w", doc.ID(), domain.ErrEmptyDocument)
	}
	if !utf8.ValidString(text) || strings.IndexByte(text, 0) >= 0 {
		return nil, fmt.Errorf("document %s: %w", doc.ID(), domain.ErrUnsupportedFormat)
	}

	var chunks []Chunk
	start, prevEnd := 0, 0
	for pos := 0; ; pos++ {
		end := s.cut(text, start)
		overlap := 0
		if pos > 0 {
			overlap = prevEnd - start
		}
		c, err := New(doc.ID(), pos, text[start:end], overlap)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID(), err)
		}
		chunks = append(chunks, c)
		if end == len(text) {
			return chunks, nil
		}
		prevEnd = end
		start = s.nextStart(text, start, end)
	}
}

// cut returns the byte offset ending the chunk that begins at start.
// The latest boundary separator inside the window wins, provided it does
// not leave the chunk shorter than half the target size; otherwise the
// cut is hard, snapped back to a rune boundary.
func (s Splitter) cut(text string, start int) int {
	if start+s.size >= len(text) {
		return len(text)
	}
	window := text[start : start+s.size]
	for _, sep := range boundaries {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			end := idx + len(sep)
			if end*2 >= s.size {
				return start + end
			}
		}
	}
	hard := start + s.size
	for hard > start && !utf8.RuneStart(text[hard]) {
		hard--
	}
	if hard == start {
		_, w := utf8.DecodeRuneInString(text[start:])
		hard = start + w
	}
	return hard
}

// nextStart backs off overlap bytes from the previous cut and always
// moves forward. Mid-rune landings advance to the next rune start so the
// applied overlap never exceeds the configured one.
func (s Splitter) nextStart(text string, start, end int) int {
	next := end - s.overlap
	if next <= start {
		next = start + 1
	}
	for next < end && !utf8.RuneStart(text[next]) {
		next++
	}
	return next
}
