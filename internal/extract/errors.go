package extract

import "fmt"

// EnvelopeError means the completion envelope lacks choices[0].message.content.
type EnvelopeError struct{ Reason string }

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("unexpected response shape: %s", e.Reason)
}

// ExtractionError means no candidate region in the content decoded as a JSON object.
type ExtractionError struct {
	Reason     string
	Candidates int
	// Span is the content from the first '{' through the last '}', if any.
	Span string
}

func (e *ExtractionError) Error() string {
	if e.Candidates > 0 {
		return fmt.Sprintf("no valid JSON object in model output (%d candidates tried): %s", e.Candidates, e.Reason)
	}
	return fmt.Sprintf("no valid JSON object in model output: %s", e.Reason)
}

// ValidationError means a JSON object was found but it lacks usable "structure" or "files".
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing structure or files in AI response: %s %s", e.Field, e.Reason)
}
