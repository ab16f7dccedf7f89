package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrEmptyDocument signals a document with no indexable content.
	ErrEmptyDocument = errors.New("document is empty")
	// ErrUnsupportedFormat signals binary or undecodable content reaching ingestion.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrInvalidArgument signals a malformed request parameter.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIndexVersionMismatch signals embedding-model version drift between
	// the index and an incoming vector. Queries against stale vectors are
	// blocked until the corpus is reindexed.
	ErrIndexVersionMismatch = errors.New("index version mismatch")

	// ErrEmbeddingUnavailable signals an embedding provider failure.
	// Recoverable: search degrades to lexical-only.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrExpansionUnavailable signals a query expansion failure.
	// Recoverable: search proceeds with the original query only.
	ErrExpansionUnavailable = errors.New("query expansion unavailable")
	// ErrGenerationUnavailable signals a generation provider failure.
	ErrGenerationUnavailable = errors.New("generation unavailable")
)

// VersionMismatchError wraps ErrIndexVersionMismatch with both tags.
type VersionMismatchError struct {
	Want string
	Got  string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("%s: index built with %q, got %q", ErrIndexVersionMismatch.Error(), e.Want, e.Got)
}

func (e *VersionMismatchError) Unwrap() error { return ErrIndexVersionMismatch }

// NewVersionMismatch creates an index version mismatch error.
func NewVersionMismatch(want, got string) error {
	return &VersionMismatchError{Want: want, Got: got}
}
