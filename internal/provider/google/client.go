// Package google adapts Gemini's genai SDK to the provider-agnostic
// provider.Client interface. Adapted from the teacher's
// internal/provider/google/client.go: kept the SDK wiring (lazy client
// construction, content/system-instruction split), dropped the streaming
// half and the Message/ChatRequest wrapper types, which have no caller in
// this pipeline (see DESIGN.md).
package google

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/paperfuse/core/internal/provider"
)

// Client is a Gemini API client implementing provider.Client.
type Client struct {
	client *genai.Client
	err    error
}

// NewClient creates a new Gemini client. Construction errors are deferred
// to the first Chat call, mirroring the teacher's lazy-failure shape.
func NewClient(apiKey string) *Client {
	c, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return &Client{err: err}
	}
	return &Client{client: c}
}

// Chat calls Gemini's GenerateContent.
func (c *Client) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	if c.err != nil {
		return provider.ChatResponse{}, fmt.Errorf("google client not initialized: %w", c.err)
	}

	contents, systemInstruction := prepareContents(req.Messages)
	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != nil {
		cfg.SystemInstruction = systemInstruction
	}
	if req.Temperature != 0 {
		f32 := float32(req.Temperature)
		cfg.Temperature = &f32
	}
	if req.MaxTokens != 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return provider.ChatResponse{}, err
	}

	var text string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	return provider.ChatResponse{Text: text}, nil
}

func prepareContents(msgs []provider.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, m := range msgs {
		switch m.Role {
		case "system":
			systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case "assistant":
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	return contents, systemInstruction
}
