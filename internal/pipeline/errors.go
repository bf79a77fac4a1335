package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a failed request for callers such as the HTTP server.
type Kind string

const (
	KindInput         Kind = "input"
	KindExtraction    Kind = "extraction"
	KindGeneration    Kind = "generation"
	KindRendering     Kind = "rendering"
	KindConfiguration Kind = "configuration"
)

// Common pipeline errors
var (
	// ErrNoUploads is returned when a request carries no reference documents.
	ErrNoUploads = errors.New("no reference documents uploaded")

	// ErrDPIOutOfRange is returned when a request asks for a rasterization
	// DPI outside the supported range.
	ErrDPIOutOfRange = errors.New("dpi out of range")

	// ErrTooManyPages is returned when a PDF exceeds the configured page limit.
	ErrTooManyPages = errors.New("document exceeds the page limit")

	// ErrEmptyReference is returned when extraction yields no text at all.
	ErrEmptyReference = errors.New("no text could be extracted from the uploaded documents")

	// ErrNoVariants is returned when generation produced nothing to render.
	ErrNoVariants = errors.New("generation returned no mock papers")
)

// Error is a failed request: the state it failed in, what kind of failure
// it was and the underlying cause.
type Error struct {
	State State
	Kind  Kind
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("pipeline: %s error while %s: %v", e.Kind, e.State, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// KindOf returns the failure kind of err, or "" when err did not come from
// a pipeline run.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
