package fetchmanager

import (
	"errors"
	"fmt"

	"github.com/paperfuse/core/internal/classify"
)

// Error wraps a pipeline failure with the taxonomy label spec §7 requires
// at the boundary between the AI Client (§4.C) and the Fetch Manager
// (§4.G): Kind drives the user-visible label, Retryable whether a UI retry
// prompt should be offered.
type Error struct {
	Kind      classify.Kind
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// newError wraps err under a fixed taxonomy Kind.
func newError(kind classify.Kind, retryable bool, err error) *Error {
	return &Error{Kind: kind, Retryable: retryable, Err: err}
}

// ErrAlreadyFetching is returned by Guard.Acquire when a fetch is already
// in progress (spec §4.G.1) — a guard-precondition rejection, not a
// database failure, so it carries its own taxonomy Kind rather than
// overloading KindDatabase.
var ErrAlreadyFetching = newError(classify.KindAlreadyFetching, false, errors.New("already fetching"))

// ErrNotFetching is returned by Guard.Cancel when no fetch is in progress.
var ErrNotFetching = errors.New("no fetch in progress")

// ErrNoAIClient is returned by AnalyzeSingle/BatchAnalyze when the Manager
// was built without a provider configured (spec §4.C "analysis requires a
// configured provider").
var ErrNoAIClient = errors.New("no AI client configured")

// ErrCancelled is returned when a fetch observes its cancellation token set
// at one of the checkpoints in spec §4.G.4.
var ErrCancelled = newError(classify.KindCancelled, false, errors.New("cancelled"))

// fromLlmError converts a raw AI Client error into the spec §7 taxonomy via
// classify.ClassifyLlmError, keyed by the provider the client was built for.
func fromLlmError(provider string, err error) *Error {
	c := classify.ClassifyLlmError(provider, err)
	kind := classify.KindLlm
	switch c.Kind {
	case classify.KindLlmRateLimit:
		kind = classify.KindLlmRateLimit
	case classify.KindLlmAuth:
		kind = classify.KindLlmAuth
	case classify.KindNetwork:
		kind = classify.KindNetwork
	}
	return newError(kind, c.Retryable, err)
}

func fromDatabaseError(err error) *Error {
	return newError(classify.KindDatabase, false, err)
}

func fromArxivError(err error) *Error {
	return newError(classify.KindArxiv, true, err)
}
