package ai

import "context"

// Runtime is the one call the build pipeline needs from a completion backend.
// *Client implements it; tests substitute fakes.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

var _ Runtime = (*Client)(nil)

// UserPrompt wraps a single user-role message into a request for model.
func UserPrompt(model, prompt string) GenerateRequest {
	return GenerateRequest{
		Model:    model,
		Messages: []Message{{Role: "user", Content: prompt}},
	}
}
