package domain

import "context"

// Generator is the text-completion collaborator that turns a prompt plus
// retrieved context into an answer. The engine never inspects the model,
// only the returned text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (GenerationResult, error)
}

// GenerationResult carries the answer text and usage accounting.
type GenerationResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}
