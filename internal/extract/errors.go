package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedType is returned for uploads that are neither PDF nor DOCX.
	ErrUnsupportedType = errors.New("unsupported document type")

	// ErrUnreadableDocument is returned when a document cannot be opened or parsed.
	ErrUnreadableDocument = errors.New("unreadable document")
)

// ExtractError wraps a failure with the document it concerns.
type ExtractError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is matches against the wrapped error.
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newExtractError(op, path string, err error) *ExtractError {
	return &ExtractError{Op: op, Path: path, Err: err}
}
