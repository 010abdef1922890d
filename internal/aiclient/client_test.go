package aiclient

import (
	"context"
	"testing"

	"github.com/paperfuse/core/internal/classify"
	"github.com/paperfuse/core/internal/provider"
)

type fakeTransport struct {
	text string
	err  error
	reqs []provider.ChatRequest
}

func (f *fakeTransport) Chat(_ context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return provider.ChatResponse{}, f.err
	}
	return provider.ChatResponse{Text: f.text}, nil
}

func newTestClient(t *testing.T, text string) (*Client, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{text: text}
	return &Client{transport: ft, providerKey: "glm", quickModel: "glm-4-flash", deepModel: "glm-4-plus"}, ft
}

func TestAnalyzeRelevanceParsesCleanedJSON(t *testing.T) {
	c, ft := newTestClient(t, "```json\n{\"score\": 80, \"reason\": \"good fit\", \"suggested_tags\": [\"x\"], \"suggested_topics\": [\"y\"]}\n```")
	got, err := c.AnalyzeRelevance(context.Background(), "T", "S", nil, "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Score != 80 || got.Reason != "good fit" {
		t.Fatalf("got %+v", got)
	}
	if len(ft.reqs) != 1 || ft.reqs[0].Model != "glm-4-flash" {
		t.Fatalf("expected quick model call, got %+v", ft.reqs)
	}
}

func TestAnalyzeStandardUsesDeepModel(t *testing.T) {
	c, ft := newTestClient(t, `{"novelty_score": 7, "ai_summary": "s"}`)
	_, err := c.AnalyzeStandard(context.Background(), "T", "S", nil, "intro", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ft.reqs[0].Model != "glm-4-plus" {
		t.Fatalf("expected deep model call, got %+v", ft.reqs)
	}
}

func TestAnalyzeRelevanceParseFailureIsNonRetryableError(t *testing.T) {
	c, _ := newTestClient(t, "not json at all")
	_, err := c.AnalyzeRelevance(context.Background(), "T", "S", nil, "en")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if d := classify.ForProvider(c.Provider()).Classify(err); d.ShouldRetry {
		t.Fatalf("expected parse failure to be non-retryable, got %+v", d)
	}
}

func TestAnalyzeFullUsesDeepModelAndMaxTokens(t *testing.T) {
	c, ft := newTestClient(t, `{"novelty_score": 5, "time_complexity": "O(n)"}`)
	_, err := c.AnalyzeFull(context.Background(), "T", "S", nil, "full text", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ft.reqs[0].Model != "glm-4-plus" {
		t.Fatalf("expected deep model call, got %+v", ft.reqs)
	}
	if ft.reqs[0].MaxTokens != 100000 {
		t.Fatalf("expected full max tokens, got %d", ft.reqs[0].MaxTokens)
	}
}
