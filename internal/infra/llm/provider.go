// Package llm implements completion API providers and the retry policy
// wrapped around them.
//
// This package contains:
//   - Provider interface: submit a prompt, receive raw text
//   - PerplexityProvider: chat completions over HTTP
//   - VertexProvider: Gemini on Vertex AI
//   - Backoff: bounded exponential retry for rate-limited calls
package llm

import (
	"context"
	"fmt"
	"net/http"
)

// Response is the raw text returned by a completion API.
type Response struct {
	Text string
}

// Provider submits a single prompt and returns the model's text.
type Provider interface {
	// GetName returns provider identifier (e.g., "perplexity", "vertex")
	GetName() string

	// Complete sends one prompt synchronously
	Complete(ctx context.Context, prompt string) (*Response, error)

	// Close cleans up resources
	Close() error
}

// APIError is a non-success answer from a completion API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		return fmt.Sprintf("%s: rate limited (429), retry after: %s", e.Provider, e.RetryAfter)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
