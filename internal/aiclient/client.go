// Package aiclient implements the AI Client component (spec §4.C): prompt
// construction, response cleaning, provider dispatch via internal/provider,
// and optional retry-executor wiring. Grounded on
// original_source/src-tauri/src/llm.rs (prompt shapes, response cleaning,
// max-tokens-per-analysis-type table) and the teacher's
// provider.NewQueryClient factory-dispatch pattern for provider selection.
package aiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paperfuse/core/internal/classify"
	"github.com/paperfuse/core/internal/consts"
	"github.com/paperfuse/core/internal/provider"
	"github.com/paperfuse/core/internal/retry"
	"github.com/paperfuse/core/internal/types"
)

// Client performs the two-phase analysis protocol against a single
// configured provider.
type Client struct {
	transport   provider.Client
	providerKey string
	quickModel  string
	deepModel   string
	retryConfig *retry.Config
}

// New constructs an AI Client for the given provider configuration. Unset
// QuickModel/DeepModel fall back to the provider's hardcoded defaults
// (spec §4.C "Model selection").
func New(cfg types.ProviderConfig) (*Client, error) {
	transport, err := provider.New(cfg)
	if err != nil {
		return nil, err
	}

	quick, deep := cfg.QuickModel, cfg.DeepModel
	defQuick, defDeep := provider.DefaultModels(cfg.Name)
	if quick == "" {
		quick = defQuick
	}
	if deep == "" {
		deep = defDeep
	}

	return &Client{
		transport:   transport,
		providerKey: cfg.Name,
		quickModel:  quick,
		deepModel:   deep,
	}, nil
}

// NewWithTransport builds a Client around an already-constructed transport,
// bypassing provider.New's credential dispatch. Used by callers (and tests
// in other packages) that need to inject a fake provider.Client.
func NewWithTransport(transport provider.Client, providerKey, quickModel, deepModel string) *Client {
	return &Client{transport: transport, providerKey: providerKey, quickModel: quickModel, deepModel: deepModel}
}

// WithRetryConfig attaches a retry configuration; subsequent calls run the
// provider request through the Retry Executor (spec §4.G.3 "attach it to
// the AI client if present").
func (c *Client) WithRetryConfig(cfg retry.Config) *Client {
	c.retryConfig = &cfg
	return c
}

// Provider returns the provider key this client was constructed for, so
// callers can classify its errors via classify.ForProvider /
// classify.ClassifyLlmError without duplicating the configuration.
func (c *Client) Provider() string { return c.providerKey }

func (c *Client) send(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	req := provider.ChatRequest{
		Model:       model,
		Messages:    []provider.Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   maxTokens,
	}

	if c.retryConfig == nil {
		resp, err := c.transport.Chat(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%s chat request: %w", c.providerKey, err)
		}
		return resp.Text, nil
	}

	classifier := classify.ForProvider(c.providerKey)
	resp, err := retry.Do(ctx, *c.retryConfig, classifier, func(ctx context.Context) (provider.ChatResponse, error) {
		return c.transport.Chat(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("%s chat request: %w", c.providerKey, err)
	}
	return resp.Text, nil
}

func parseResult[T any](raw string) (T, error) {
	var out T
	cleaned := cleanResponse(raw)
	if err := json.Unmarshal([]byte(cleaned), &out); err == nil {
		return out, nil
	}
	fixed := fixJSONFormatting(cleaned)
	if err := json.Unmarshal([]byte(fixed), &out); err != nil {
		var zero T
		return zero, fmt.Errorf("parse LLM response: %w", err)
	}
	return out, nil
}

// AnalyzeRelevance runs Phase 1: a cheap relevance check against the quick
// model.
func (c *Client) AnalyzeRelevance(ctx context.Context, title, summary string, topics []types.TopicConfig, language string) (types.RelevanceResult, error) {
	raw, err := c.send(ctx, c.quickModel, relevancePrompt(title, summary, topics, language), consts.MaxTokensRelevance)
	if err != nil {
		return types.RelevanceResult{}, err
	}
	return parseResult[types.RelevanceResult](raw)
}

// AnalyzeStandard runs Phase 2 in "standard" mode: intro+conclusion excerpt
// against the deep model.
func (c *Client) AnalyzeStandard(ctx context.Context, title, summary string, topics []types.TopicConfig, latexContent, language string) (types.StandardAnalysisResult, error) {
	raw, err := c.send(ctx, c.deepModel, standardPrompt(title, summary, topics, latexContent, language), consts.MaxTokensStandard)
	if err != nil {
		return types.StandardAnalysisResult{}, err
	}
	return parseResult[types.StandardAnalysisResult](raw)
}

// AnalyzeFull runs Phase 2 in "full" mode: the (truncated) full document
// against the deep model.
func (c *Client) AnalyzeFull(ctx context.Context, title, summary string, topics []types.TopicConfig, latexContent, language string) (types.FullAnalysisResult, error) {
	raw, err := c.send(ctx, c.deepModel, fullPrompt(title, summary, topics, latexContent, language), consts.MaxTokensFull)
	if err != nil {
		return types.FullAnalysisResult{}, err
	}
	return parseResult[types.FullAnalysisResult](raw)
}
