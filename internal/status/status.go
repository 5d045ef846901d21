package status

import "errors"

// Error kinds. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation: invalid input")
	ErrAuth       = errors.New("auth: authentication failed")
	ErrForbidden  = errors.New("auth: access denied")
	ErrNotFound   = errors.New("store: record not found")
	ErrConflict   = errors.New("store: conflicting state")
)

// Error is a failure that is safe to show to the client.
type Error struct {
	Kind    error
	Message string

	// Details holds per-field validation errors, if any.
	Details error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Invalid(message string, details error) error {
	return &Error{Kind: ErrValidation, Message: message, Details: details}
}

func Unauthorized(message string) error {
	return &Error{Kind: ErrAuth, Message: message}
}

func Forbidden(message string) error {
	return &Error{Kind: ErrForbidden, Message: message}
}

func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func Conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}
