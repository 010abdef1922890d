// Package glm adapts the openai-go SDK, pointed at GLM's OpenAI-compatible
// endpoint, to the provider-agnostic provider.Client interface. Adapted
// from the teacher's internal/provider/openai/client.go: kept the SDK
// wiring (openai.Client against a custom base URL), dropped the streaming
// half and the Message/ChatRequest wrapper types, which have no caller in
// this pipeline (see DESIGN.md).
package glm

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/paperfuse/core/internal/provider"
)

// Client is an OpenAI-compatible client pointed at GLM's endpoint.
type Client struct {
	client openai.Client
}

// NewClient creates a new GLM client against baseURL (GLM's OpenAI-compatible
// endpoint; see consts.DefaultGLMBaseURL for the default).
func NewClient(apiKey, baseURL string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{client: openai.NewClient(opts...)}
}

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
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return statusWrap{err: err, statusCode: apiErr.StatusCode}
	}
	return err
}

// Chat calls the Chat Completions API.
func (c *Client) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
	}
	if req.Temperature != 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens != 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.ChatResponse{}, wrapErr(err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return provider.ChatResponse{Text: text}, nil
}
