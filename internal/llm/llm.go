package llm

import (
	"context"
	"errors"
	"fmt"
)

// Gateway performs a single chat-completion call against a named provider.
type Gateway interface {
	Call(ctx context.Context, providerID string, req Request) (Completion, error)
}

// Request is one prompt sent to a provider.
type Request struct {
	Prompt       string
	SystemPrompt string
	// MaxTokens overrides the provider default when positive.
	MaxTokens int
}

// Completion is a successful provider response.
type Completion struct {
	Content    string
	TokensUsed int
	Model      string
}

// ErrorKind classifies provider call failures.
type ErrorKind string

const (
	KindAuth          ErrorKind = "auth"
	KindRateLimited   ErrorKind = "rate_limited"
	KindTimeout       ErrorKind = "timeout"
	KindProvider      ErrorKind = "provider_error"
	KindMalformed     ErrorKind = "malformed_response"
	KindUnavailable   ErrorKind = "unavailable"
	KindPersistence   ErrorKind = "persistence"
	KindNotConfigured ErrorKind = "not_configured"
)

// Error is the normalized failure returned by a Gateway.
type Error struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Reached reports whether the provider answered with an HTTP response.
func (e *Error) Reached() bool { return e.StatusCode > 0 }

// KindOf extracts the ErrorKind from err, defaulting to KindProvider.
func KindOf(err error) ErrorKind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return KindProvider
}

// NewError builds an *Error without an HTTP status.
func NewError(kind ErrorKind, provider, message string) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message}
}
