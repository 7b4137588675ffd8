package e

import "fmt"

var (
	// 404 Not Found
	// Used both for request paths that don't match the derivative key
	// pattern and for hashes with no stored base image, so callers can't
	// probe which hashes exist.
	ErrNotFound = fmt.Errorf("not found")

	// 405 Method Not Allowed
	ErrMethodNotAllowed = fmt.Errorf("method not allowed")

	// 413 Payload Too Large
	ErrTooLargeImage = fmt.Errorf("too large image data")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// ValidationError is a client error (400) whose message is safe to surface
// in the response body, e.g. "Image has too many pixels (70000 > 65536)".
type ValidationError struct {
	Msg string
}

func (v *ValidationError) Error() string {
	return v.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a context message.
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
