package mockgen

import (
	"errors"
	"fmt"
)

// Common generation errors
var (
	// ErrMissingCredential is returned when neither the request nor the process
	// environment supplies a usable API key. It is terminal and never retried.
	ErrMissingCredential = errors.New("no usable API credential: pass an API key or set the provider's API key environment variable")

	// ErrGenerationFailed is returned when both the structured and the legacy
	// generation paths fail.
	ErrGenerationFailed = errors.New("mock generation failed")

	// ErrEmptyResponse is returned when the service answers with no content.
	ErrEmptyResponse = errors.New("empty response from text service")

	// ErrNoJSONObject is returned when a response contains no balanced JSON object.
	ErrNoJSONObject = errors.New("no JSON object in response")

	// ErrSchemaMismatch is returned when JSON parses but does not describe mock papers.
	ErrSchemaMismatch = errors.New("response does not match the mock paper schema")

	// ErrNoLegacyPapers is returned when a legacy response has no delimited papers.
	ErrNoLegacyPapers = errors.New("no ### MOCK PAPER sections in response")
)

// GenerationError wraps errors with context about the generation step that failed.
type GenerationError struct {
	// Op is the operation that failed (e.g., "structured", "legacy", "Complete").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("mockgen: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("mockgen: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *GenerationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(op string, err error, details string) *GenerationError {
	return &GenerationError{Op: op, Err: err, Details: details}
}

// WrapGenerationError wraps err as a GenerationError if it isn't already one.
func WrapGenerationError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}

	return NewGenerationError(op, err, details)
}
