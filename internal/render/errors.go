package render

import (
	"errors"
	"fmt"
)

// Common render errors
var (
	// ErrRenderFailed is returned when every configured backend failed.
	ErrRenderFailed = errors.New("all render backends failed")

	// ErrUnknownBackend is returned for a backend name with no implementation.
	ErrUnknownBackend = errors.New("unknown render backend")

	// ErrNoBackends is returned when a renderer is built without backends.
	ErrNoBackends = errors.New("no render backends configured")

	// ErrEmptyPDF is returned when a backend produced no bytes.
	ErrEmptyPDF = errors.New("backend produced an empty PDF")
)

// RenderError wraps errors with context about the backend step that failed.
type RenderError struct {
	// Op is the operation that failed (e.g., "HTMLBackend.Write", "Render").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("render: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("render: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *RenderError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *RenderError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRenderError creates a new RenderError.
func NewRenderError(op string, err error, details string) *RenderError {
	return &RenderError{Op: op, Err: err, Details: details}
}

// WrapRenderError wraps err as a RenderError if it isn't already one.
func WrapRenderError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return err
	}

	return NewRenderError(op, err, details)
}
