// Package llm defines the Provider interface for Large Language Model
// backends used by the proofreading pipeline.
//
// A provider wraps a remote model API (e.g., OpenAI GPT or any backend
// supported by any-llm-go) and exposes a uniform chat-completion call.
// Implementations must be safe for concurrent use and must map provider
// throttling responses to [ErrRateLimited] so callers can retry.
package llm

import (
	"context"
	"errors"
)

// ErrRateLimited marks a completion attempt rejected by the backend's rate
// limiter. Implementations wrap their provider-specific throttling error
// with this sentinel; callers test for it with [IsRateLimited].
var ErrRateLimited = errors.New("llm: rate limited")

// Message represents a single message in a conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a
// response. Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is a high-priority instruction injected before the
	// conversation history.
	SystemPrompt string

	// Messages is the ordered conversation history.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. The
	// proofreading pipeline uses a low value for determinism.
	Temperature float64

	// MaxTokens caps completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is returned by [Provider.Complete].
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use and must propagate
// context cancellation promptly.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Throttling failures are wrapped with [ErrRateLimited].
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// IsRateLimited reports whether err stems from backend throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
