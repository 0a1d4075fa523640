package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the model produced no usable text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// LLMProvider defines the contract for interacting with AI models.
// Implementations exist for Gemini and OpenAI; the planner only sees this interface.
type LLMProvider interface {
	// Complete sends the conversation and returns the generated text.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Model is the default model identifier used when a request does not name one.
	Model() string
}
