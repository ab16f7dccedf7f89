package expand

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain/language"
)

// Translator produces a corpus-language rendering of a query. Implemented
// by transport/openai; nil disables translation variants entirely.
type Translator interface {
	Translate(ctx context.Context, text string, to language.Language) (string, error)
}
