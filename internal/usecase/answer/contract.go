package answer

import (
	"context"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/usecase/search"
)

// Retriever runs the hybrid search that supplies answer context.
type Retriever interface {
	Search(ctx context.Context, req *request.Request) (search.Response, error)
}

// Generator is the completion collaborator that turns the grounded
// prompt into answer text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.GenerationResult, error)
}
