package library

import "errors"

var (
	// ErrBookNotFound covers both a missing book and one owned by another
	// user; callers must not be able to tell the two apart.
	ErrBookNotFound = errors.New("book not found or access denied")

	ErrUnauthenticated = errors.New("authentication required")
)

const (
	msgRequiredFields = "Title, author, and PDF file are required"
	msgOnlyPDF        = "Only PDF files are allowed"
	msgTooLarge       = "File size must be less than 50MB"
)

// ValidationError is returned for bad client input and maps to 400.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(message string) error {
	return &ValidationError{Message: message}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
