package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrStorageUnset is returned when a local engine has no explicit model directory.
	// Engines never fall back to an implicit download location.
	ErrStorageUnset = errors.New("OCR model directory is not set")

	// ErrStorageConflict is returned when the writable scratch directory is the
	// read-only model directory.
	ErrStorageConflict = errors.New("OCR scratch directory must differ from the model directory")

	// ErrModelUnavailable is returned when model weights for a language are not
	// present locally. Downloads are disabled.
	ErrModelUnavailable = errors.New("OCR model weights not available locally")

	// ErrUnknownBackend is returned for an unrecognized engine name.
	ErrUnknownBackend = errors.New("unknown OCR backend")

	// ErrOCRFailed is returned when the engine fails to process an image.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when a cloud engine has neither
	// GOOGLE_CREDENTIALS nor GOOGLE_APPLICATION_CREDENTIALS configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrEmptyImage is returned for a nil or zero-sized image.
	ErrEmptyImage = errors.New("image is empty")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "Recognize", "NewTesseractEngine").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewOCRError(op, err, details)
}
