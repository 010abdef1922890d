// Package classify implements the provider-specific ErrorClassifier contract
// (spec §4.A) and the error-taxonomy conversion at the AI-client boundary
// (spec §7). Grounded on original_source/src-tauri/src/retry/classifier.rs:
// two concrete classifiers (Claude, generic-OpenAI-compatible-or-Google)
// cover every provider this module wires.
package classify

import (
	"errors"
	"net/http"
	"strings"

	"github.com/paperfuse/core/internal/consts"
	"github.com/paperfuse/core/internal/retry"
)

// StatusError is implemented by provider SDK errors that carry an HTTP
// status code. When a concrete provider error doesn't implement it,
// classification falls back to substring matching on Error().
type StatusError interface {
	error
	StatusCode() int
}

// HTTPStatus extracts a status code from err via StatusError, or 0.
func HTTPStatus(err error) int {
	var se StatusError
	if errors.As(err, &se) {
		return se.StatusCode()
	}
	return 0
}

// ErrNoAPIKey is returned by AI Client construction/calls when no
// credential is configured for the selected provider (spec §4.A table,
// "no API key configured" -> non-retryable).
var ErrNoAPIKey = errors.New("no API key configured for provider")

// ForProvider returns the classifier instance for a provider key. Unknown
// keys fall back to the generic classifier, per design notes §9 ("a sum
// type is equivalent to an interface and simpler").
func ForProvider(provider string) retry.Classifier {
	if provider == consts.ProviderClaude {
		return claudeClassifier{}
	}
	return genericClassifier{}
}

func classifyByStatus(status int, retryableServerCodes func(int) bool) (retry.Decision, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return retry.Decision{ShouldRetry: true, ErrorType: retry.ErrorRateLimit, Reason: "rate limited (429)"}, true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return retry.Decision{ShouldRetry: false, Reason: "authentication/permission error"}, true
	case status == http.StatusBadRequest:
		return retry.Decision{ShouldRetry: false, Reason: "bad request (400)"}, true
	case retryableServerCodes(status):
		return retry.Decision{ShouldRetry: true, ErrorType: retry.ErrorServerError, Reason: "server error"}, true
	case status != 0:
		return retry.Decision{ShouldRetry: false, Reason: "non-retryable HTTP status"}, true
	}
	return retry.Decision{}, false
}

func classifyBySubstring(msg string) retry.Decision {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no api key"):
		return retry.Decision{ShouldRetry: false, Reason: "no API key configured"}
	case strings.Contains(msg, "429"), strings.Contains(lower, "rate limit"), strings.Contains(lower, "too many requests"):
		return retry.Decision{ShouldRetry: true, ErrorType: retry.ErrorRateLimit, Reason: "rate limit (message match)"}
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"), strings.Contains(lower, "unauthorized"), strings.Contains(lower, "invalid api key"), strings.Contains(lower, "forbidden"):
		return retry.Decision{ShouldRetry: false, Reason: "authentication error (message match)"}
	case strings.Contains(msg, "400"), strings.Contains(lower, "bad request"), strings.Contains(lower, "invalid parameter"):
		return retry.Decision{ShouldRetry: false, Reason: "bad request (message match)"}
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"), strings.Contains(msg, "503"), strings.Contains(msg, "504"),
		strings.Contains(lower, "internal server error"), strings.Contains(lower, "service unavailable"), strings.Contains(lower, "overloaded"):
		return retry.Decision{ShouldRetry: true, ErrorType: retry.ErrorServerError, Reason: "server error (message match)"}
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline exceeded"):
		return retry.Decision{ShouldRetry: true, ErrorType: retry.ErrorTimeout, Reason: "timeout (message match)"}
	case strings.Contains(lower, "connect"), strings.Contains(lower, "dns"), strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"):
		return retry.Decision{ShouldRetry: true, ErrorType: retry.ErrorNetworkError, Reason: "network error (message match)"}
	case strings.Contains(lower, "parse"), strings.Contains(lower, "unmarshal"), strings.Contains(lower, "invalid json"):
		return retry.Decision{ShouldRetry: false, Reason: "response parse failure"}
	default:
		return retry.Decision{ShouldRetry: false, Reason: "unclassified error, default non-retryable"}
	}
}

// claudeClassifier handles the Anthropic-specific 529 "overloaded" status in
// addition to the generic HTTP taxonomy (spec §4.A table).
type claudeClassifier struct{}

func (claudeClassifier) Classify(err error) retry.Decision {
	if err == nil {
		return retry.Decision{ShouldRetry: false}
	}
	if status := HTTPStatus(err); status != 0 {
		if status == 529 {
			return retry.Decision{ShouldRetry: true, ErrorType: retry.ErrorServerError, Reason: "Claude service overloaded (529)"}
		}
		if d, ok := classifyByStatus(status, func(s int) bool { return s >= 500 && s < 600 }); ok {
			return d
		}
	}
	return classifyBySubstring(err.Error())
}

// genericClassifier covers GLM, other OpenAI-compatible endpoints, and
// Google's Gemini transport (spec §4.A table minus the 529 special case).
type genericClassifier struct{}

func (genericClassifier) Classify(err error) retry.Decision {
	if err == nil {
		return retry.Decision{ShouldRetry: false}
	}
	if status := HTTPStatus(err); status != 0 {
		if d, ok := classifyByStatus(status, func(s int) bool { return s >= 500 && s < 600 }); ok {
			return d
		}
	}
	return classifyBySubstring(err.Error())
}

// Kind is the user-visible error taxonomy label (spec §7).
type Kind string

const (
	KindArxiv           Kind = "arxiv"
	KindLlmRateLimit    Kind = "llm_rate_limit"
	KindLlmAuth         Kind = "llm_auth"
	KindNetwork         Kind = "network"
	KindDatabase        Kind = "database"
	KindCancelled       Kind = "cancelled"
	KindLlm             Kind = "llm"
	KindAlreadyFetching Kind = "already_fetching"
)

// Classified pairs a taxonomy Kind with its retryability and a human message,
// per spec §7's table.
type Classified struct {
	Kind        Kind
	Retryable   bool
	Message     string
}

// ClassifyLlmError converts a raw LLM client error into the §7 taxonomy at
// the boundary between the AI Client (4.C) and the Fetch Manager (4.G).
func ClassifyLlmError(provider string, err error) Classified {
	decision := ForProvider(provider).Classify(err)
	msg := err.Error()
	if !decision.ShouldRetry {
		if status := HTTPStatus(err); status == http.StatusUnauthorized || status == http.StatusForbidden ||
			strings.Contains(strings.ToLower(msg), "unauthorized") || strings.Contains(strings.ToLower(msg), "invalid api key") {
			return Classified{Kind: KindLlmAuth, Retryable: false, Message: msg}
		}
		return Classified{Kind: KindLlm, Retryable: false, Message: msg}
	}
	switch decision.ErrorType {
	case retry.ErrorRateLimit:
		return Classified{Kind: KindLlmRateLimit, Retryable: true, Message: msg}
	case retry.ErrorNetworkError, retry.ErrorTimeout:
		return Classified{Kind: KindNetwork, Retryable: true, Message: msg}
	default:
		return Classified{Kind: KindLlm, Retryable: true, Message: msg}
	}
}
