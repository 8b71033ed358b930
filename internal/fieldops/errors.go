package fieldops

import "errors"

var (
	ErrNotFound       = errors.New("fieldops: not found")
	ErrAlreadyExists  = errors.New("fieldops: already exists")
	ErrInvalidInput   = errors.New("fieldops: invalid input")
	ErrUnauthorized   = errors.New("fieldops: unauthorized")
	ErrForbidden      = errors.New("fieldops: forbidden")
	ErrNoOrganization = errors.New("fieldops: no organization linked")
)

// Error carries a caller-facing message while still matching its kind with errors.Is.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func invalid(msg string) error { return newError(ErrInvalidInput, msg) }
