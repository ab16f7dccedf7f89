package ragdex

import "github.com/kailas-cloud/ragdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound              = domain.ErrNotFound
	ErrDocumentNotFound      = domain.ErrDocumentNotFound
	ErrEmptyDocument         = domain.ErrEmptyDocument
	ErrUnsupportedFormat     = domain.ErrUnsupportedFormat
	ErrInvalidArgument       = domain.ErrInvalidArgument
	ErrVectorDimMismatch     = domain.ErrVectorDimMismatch
	ErrIndexVersionMismatch  = domain.ErrIndexVersionMismatch
	ErrEmbeddingUnavailable  = domain.ErrEmbeddingUnavailable
	ErrGenerationUnavailable = domain.ErrGenerationUnavailable
)
