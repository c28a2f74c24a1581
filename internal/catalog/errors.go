package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for Book API operations.
var (
	ErrNotFound      = errors.New("catalog: not found")
	ErrAlreadyExists = errors.New("catalog: already exists")
	ErrRateLimited   = errors.New("catalog: rate limited by server")
	ErrBadRequest    = errors.New("catalog: bad request")
	ErrServer        = errors.New("catalog: server error")
	ErrMalformed     = errors.New("catalog: malformed record")
	ErrInvalidISBN   = errors.New("catalog: invalid ISBN format")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // Operation: "getBook", "listBooks", "updateRatings", "deleteBook", "createBook"
	Key string // ISBN or book id, if applicable
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("catalog %s [%s]: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, key string, err error) error {
	return &Error{Op: op, Key: key, Err: err}
}
