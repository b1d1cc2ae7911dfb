// Package llm defines the port for the LLM inference collaborator.
// The model is a black box: prompt in, text or structured JSON out.
// Failures must surface as errors, never as crashes.
package llm

import "context"

// Client is the inference interface consumed by plugins.
type Client interface {
	// Generate returns free-form text for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateJSON asks the model for a strict-JSON response and decodes it
	// into v. A malformed response is an error, not a partial decode.
	GenerateJSON(ctx context.Context, prompt string, v any) error
}
