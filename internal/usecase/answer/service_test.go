package answer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/confidence"
	"github.com/kailas-cloud/ragdex/internal/domain/language"
	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/usecase/search"
)

func TestMain(m *testing.M) {
	metrics.RegisterEngineMetrics()
	os.Exit(m.Run())
}

type mockRetriever struct {
	resp  search.Response
	err   error
	calls int
}

func (m *mockRetriever) Search(_ context.Context, _ *request.Request) (search.Response, error) {
	m.calls++
	if m.err != nil {
		return search.Response{}, m.err
	}
	return m.resp, nil
}

type mockGenerator struct {
	text    string
	err     error
	calls   int
	prompts []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (domain.GenerationResult, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return domain.GenerationResult{}, m.err
	}
	return domain.GenerationResult{Text: m.text, Model: "test-model", PromptTokens: 20, CompletionTokens: 8}, nil
}

// contextSet builds a ranked set with one chunk per text, rank order
// matching argument order.
func contextSet(texts ...string) result.Set {
	results := make([]result.Ranked, len(texts))
	for i, text := range texts {
		results[i] = result.NewRanked(fmt.Sprintf("doc:%d", i), "doc", i, text,
			1.0/float64(61+i), i+1, []result.Source{result.Lexical})
	}
	return result.Set{Results: results, Variants: 1, Version: 1}
}

func mustRequest(t *testing.T, q string) *request.Request {
	t.Helper()
	r, err := request.New(q, language.Unknown, 5, -1, true)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func highConfidence() confidence.Score {
	return confidence.New(0.9, confidence.DefaultThresholds())
}

func TestAnswer_GeneratesFromContext(t *testing.T) {
	ret := &mockRetriever{resp: search.Response{
		Set:        contextSet("redis keeps data in memory", "persistence is optional"),
		Confidence: highConfidence(),
	}}
	gen := &mockGenerator{text: "Redis stores data in memory."}
	svc := New(ret, gen, Config{}, zap.NewNop())

	resp, err := svc.Answer(context.Background(), mustRequest(t, "how does redis store data"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Refused {
		t.Fatal("high-confidence context must not refuse")
	}
	if resp.Answer != "Redis stores data in memory." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.Model != "test-model" {
		t.Errorf("unexpected model: %q", resp.Model)
	}
	if gen.calls != 1 {
		t.Fatalf("expected 1 generation call, got %d", gen.calls)
	}

	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "redis keeps data in memory") ||
		!strings.Contains(prompt, "persistence is optional") {
		t.Errorf("prompt missing context chunks:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Question: how does redis store data") {
		t.Errorf("prompt missing question:\n%s", prompt)
	}
	if !strings.HasSuffix(prompt, "Answer:") {
		t.Errorf("prompt must end with the answer cue:\n%s", prompt)
	}
	if strings.Index(prompt, "redis keeps data in memory") > strings.Index(prompt, "persistence is optional") {
		t.Error("context blocks must follow rank order")
	}
	if len(resp.Set.Results) != 2 {
		t.Errorf("response must carry the full cited set, got %d", len(resp.Set.Results))
	}
}

func TestAnswer_RefusesOnInsufficientConfidence(t *testing.T) {
	ret := &mockRetriever{resp: search.Response{
		Set:        contextSet("weakly related text"),
		Confidence: confidence.New(0.1, confidence.DefaultThresholds()),
	}}
	gen := &mockGenerator{text: "should never be produced"}
	svc := New(ret, gen, Config{}, zap.NewNop())

	resp, err := svc.Answer(context.Background(), mustRequest(t, "unanswerable question"), 0)
	if err != nil {
		t.Fatalf("refusal is not an error: %v", err)
	}
	if !resp.Refused {
		t.Fatal("expected refusal")
	}
	if resp.Answer != Refusal {
		t.Errorf("expected fixed refusal text, got %q", resp.Answer)
	}
	if resp.Model != "" {
		t.Errorf("refusal must not name a model, got %q", resp.Model)
	}
	if gen.calls != 0 {
		t.Errorf("refusal must not call the generator, got %d calls", gen.calls)
	}
}

func TestAnswer_RefusesOnEmptySet(t *testing.T) {
	ret := &mockRetriever{resp: search.Response{
		Set:        result.Set{},
		Confidence: highConfidence(),
	}}
	gen := &mockGenerator{}
	svc := New(ret, gen, Config{}, zap.NewNop())

	resp, err := svc.Answer(context.Background(), mustRequest(t, "anything"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Refused || gen.calls != 0 {
		t.Errorf("empty context must refuse without generating: refused=%v calls=%d", resp.Refused, gen.calls)
	}
}

func TestAnswer_MaxContextOverride(t *testing.T) {
	ret := &mockRetriever{resp: search.Response{
		Set:        contextSet("first chunk", "second chunk", "third chunk"),
		Confidence: highConfidence(),
	}}
	gen := &mockGenerator{text: "ok"}
	svc := New(ret, gen, Config{}, zap.NewNop())

	if _, err := svc.Answer(context.Background(), mustRequest(t, "q"), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "first chunk") || !strings.Contains(prompt, "second chunk") {
		t.Errorf("prompt missing kept chunks:\n%s", prompt)
	}
	if strings.Contains(prompt, "third chunk") {
		t.Errorf("prompt must truncate past the context limit:\n%s", prompt)
	}
}

func TestAnswer_ConfiguredContextDefault(t *testing.T) {
	ret := &mockRetriever{resp: search.Response{
		Set:        contextSet("first chunk", "second chunk"),
		Confidence: highConfidence(),
	}}
	gen := &mockGenerator{text: "ok"}
	svc := New(ret, gen, Config{MaxContext: 1}, zap.NewNop())

	if _, err := svc.Answer(context.Background(), mustRequest(t, "q"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(gen.prompts[0], "second chunk") {
		t.Error("configured default must cap the context when no override is given")
	}
}

func TestAnswer_GenerationFailureSurfaces(t *testing.T) {
	ret := &mockRetriever{resp: search.Response{
		Set:        contextSet("some context"),
		Confidence: highConfidence(),
	}}
	gen := &mockGenerator{err: fmt.Errorf("backend down: %w", domain.ErrGenerationUnavailable)}
	svc := New(ret, gen, Config{}, zap.NewNop())

	_, err := svc.Answer(context.Background(), mustRequest(t, "q"), 0)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Errorf("expected ErrGenerationUnavailable, got %v", err)
	}
}

func TestAnswer_SearchErrorSurfaces(t *testing.T) {
	ret := &mockRetriever{err: fmt.Errorf("search: %w", domain.ErrInvalidArgument)}
	gen := &mockGenerator{}
	svc := New(ret, gen, Config{}, zap.NewNop())

	_, err := svc.Answer(context.Background(), mustRequest(t, "q"), 0)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected wrapped search error, got %v", err)
	}
	if gen.calls != 0 {
		t.Error("failed retrieval must not reach the generator")
	}
}

func TestAnswer_CachedFlagPassesThrough(t *testing.T) {
	ret := &mockRetriever{resp: search.Response{
		Set:        contextSet("cached context"),
		Confidence: highConfidence(),
		Cached:     true,
	}}
	gen := &mockGenerator{text: "ok"}
	svc := New(ret, gen, Config{}, zap.NewNop())

	resp, err := svc.Answer(context.Background(), mustRequest(t, "q"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Cached {
		t.Error("cached retrieval must be reported on the answer")
	}
}
