package openai

import (
	"context"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
)

const translateSystemPrompt = "You translate search queries. " +
	"Reply with only the translated query, no quotes, no explanations."

// languageNames maps language codes to the names the prompt uses.
var languageNames = map[language.Language]string{
	language.English:    "English",
	language.Indonesian: "Indonesian",
	language.Japanese:   "Japanese",
	language.Korean:     "Korean",
	language.Chinese:    "Chinese",
	language.Arabic:     "Arabic",
	language.Hindi:      "Hindi",
	language.Thai:       "Thai",
}

// Translator produces a translated query variant for cross-language search.
// Temperature is pinned near zero so identical queries yield stable variants.
type Translator struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	logger   *zap.Logger
}

// TranslatorConfig holds the translation provider settings.
type TranslatorConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	User     string
	Provider string
	Logger   *zap.Logger
}

// NewTranslator creates an OpenAI-compatible translation provider.
func NewTranslator(cfg *TranslatorConfig) *Translator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Translator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		user:     cfg.User,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Translate renders text into the target language.
func (t *Translator) Translate(ctx context.Context, text string, to language.Language) (string, error) {
	name, ok := languageNames[to]
	if !ok {
		return "", fmt.Errorf("translate: unsupported target language %q", to)
	}

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Translate to %s: %s", name, text)},
		},
		// Plain zero would be dropped by the client's omitempty encoding.
		Temperature: math.SmallestNonzeroFloat32,
		User:        t.user,
	}

	resp, err := t.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", parseAPIError("translation", err, domain.ErrExpansionUnavailable)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty translation response: %w", domain.ErrExpansionUnavailable)
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	out = strings.Trim(out, `"`)
	if out == "" {
		return "", fmt.Errorf("blank translation for %q: %w", text, domain.ErrExpansionUnavailable)
	}
	return out, nil
}
