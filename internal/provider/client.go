// Package provider defines the provider-agnostic chat interface the AI
// Client (internal/aiclient) talks to, and dispatches to concrete
// transports by provider key. Adapted from the teacher's
// internal/client/client.go + internal/provider/factory.go: the streaming
// half of that abstraction (ChatStream, QueryClient, StreamResponse) is
// dropped since nothing in this pipeline streams a response incrementally
// (see DESIGN.md).
package provider

import "context"

// Message is one entry in a chat request's message list.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest is a provider-agnostic single-shot chat completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the provider-agnostic result: a single text payload.
type ChatResponse struct {
	Text string
}

// Client is the interface every provider transport implements.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
