package rating

import (
	"fmt"

	"github.com/bookshelfapp/bookshelf-server/internal/errors"
)

// Sentinel causes. Returned errors are *errors.Error values wrapping these,
// so callers can match either the cause or the domain code.
var (
	ErrSubmitConflict  = errors.New("a rating submit is already in flight")
	ErrUndoUnavailable = errors.New("no successful submit to undo")
	ErrNoChanges       = errors.New("no changes to submit")
	ErrSessionClosed   = errors.New("rating session is closed")
	ErrInvalidStar     = errors.New("star must be between 1 and 5")
)

func submitConflict() error {
	return errors.Conflict("Another rating update is still in progress.").WithCause(ErrSubmitConflict)
}

func undoUnavailable() error {
	return errors.Conflict("There is no rating update to undo.").WithCause(ErrUndoUnavailable)
}

func noChanges() error {
	return errors.Conflict("There are no rating changes to submit.").WithCause(ErrNoChanges)
}

func sessionClosed() error {
	return errors.NotFound("The rating session has been closed.").WithCause(ErrSessionClosed)
}

func invalidStar(raw string) error {
	return errors.Validation(fmt.Sprintf("Invalid star %q: must be between 1 and 5.", raw)).WithCause(ErrInvalidStar)
}
