// Package anthropic adapts the Anthropic Messages API to the
// provider-agnostic provider.Client interface (used for the "claude"
// provider key). Adapted from the teacher's
// internal/provider/anthropic/client.go: kept the SDK wiring, dropped the
// streaming half (client.Message/StreamResponse) which has no caller in
// this pipeline (see DESIGN.md).
package anthropic

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/paperfuse/core/internal/provider"
)

// Client is an Anthropic API client implementing provider.Client.
type Client struct {
	client *anthropic.Client
}

// NewClient creates a new Anthropic client.
func NewClient(apiKey, baseURL string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := anthropic.NewClient(opts...)
	return &Client{client: &c}
}

// statusWrap adapts the SDK's *anthropic.Error to classify.StatusError so
// the retry executor's classifier can inspect HTTP status codes directly
// rather than falling back to substring matching.
type statusWrap struct {
	err        error
	statusCode int
}

func (w statusWrap) Error() string   { return w.err.Error() }
func (w statusWrap) Unwrap() error   { return w.err }
func (w statusWrap) StatusCode() int { return w.statusCode }

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return statusWrap{err: err, statusCode: apiErr.StatusCode}
	}
	return err
}

// Chat calls the Anthropic Messages API.
func (c *Client) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
	}
	if params.MaxTokens == 0 {
		params.MaxTokens = 4096
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.System = []anthropic.TextBlockParam{{Text: m.Content}}
		case "assistant":
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return provider.ChatResponse{}, wrapErr(err)
	}

	var text string
	if len(resp.Content) > 0 {
		text = resp.Content[0].Text
	}
	return provider.ChatResponse{Text: text}, nil
}
