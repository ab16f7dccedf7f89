package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// openaiChatResponse mirrors the OpenAI-compatible API chat completion response.
type openaiChatResponse struct {
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

func chatServer(t *testing.T, content string, promptTokens, completionTokens int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		resp := openaiChatResponse{Object: "chat.completion", Model: "test-gen-model"}
		choice := chatChoice{FinishReason: "stop"}
		choice.Message.Role = "assistant"
		choice.Message.Content = content
		resp.Choices = []chatChoice{choice}
		resp.Usage.PromptTokens = promptTokens
		resp.Usage.CompletionTokens = completionTokens
		resp.Usage.TotalTokens = promptTokens + completionTokens

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func newTestGenerator(t *testing.T, baseURL string) *Generator {
	t.Helper()
	return NewGenerator(&GeneratorConfig{
		APIKey:   "test-key",
		BaseURL:  baseURL,
		Model:    "test-gen-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestGenerator_Generate(t *testing.T) {
	server := chatServer(t, "  The answer is 42.\n", 120, 8)
	defer server.Close()

	gen := newTestGenerator(t, server.URL)

	result, err := gen.Generate(context.Background(), "What is the answer?")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Text != "The answer is 42." {
		t.Errorf("expected trimmed text, got %q", result.Text)
	}
	if result.Model != "test-gen-model" {
		t.Errorf("unexpected model: %s", result.Model)
	}
	if result.PromptTokens != 120 || result.CompletionTokens != 8 {
		t.Errorf("unexpected usage: %d/%d", result.PromptTokens, result.CompletionTokens)
	}
}

func TestGenerator_Generate_SendsPrompt(t *testing.T) {
	var gotPrompt string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) == 1 {
			gotPrompt = req.Messages[0].Content
		}

		resp := openaiChatResponse{Model: "test-gen-model"}
		choice := chatChoice{}
		choice.Message.Content = "ok"
		resp.Choices = []chatChoice{choice}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	gen := newTestGenerator(t, server.URL)

	if _, err := gen.Generate(context.Background(), "context plus question"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if gotPrompt != "context plus question" {
		t.Errorf("expected prompt to reach the API, got %q", gotPrompt)
	}
}

func TestGenerator_Generate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"chat.completion","model":"test-gen-model","choices":[]}`))
	}))
	defer server.Close()

	gen := newTestGenerator(t, server.URL)

	_, err := gen.Generate(context.Background(), "question")
	if err == nil {
		t.Fatal("expected error on empty choices")
	}
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Errorf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestGenerator_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail": "model overloaded"}`))
	}))
	defer server.Close()

	gen := newTestGenerator(t, server.URL)

	_, err := gen.Generate(context.Background(), "question")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Errorf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestGenerator_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	gen := newTestGenerator(t, server.URL)
	if err := gen.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
