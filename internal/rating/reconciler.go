package rating

import (
	"context"
	"log/slog"
	"sync"
)

// Store is the remote side of the reconciliation: one combined write of all
// five counts keyed by book id. Implementations are assumed atomic and
// idempotent; the Reconciler never retries.
type Store interface {
	UpdateRatingCounts(ctx context.Context, bookID int64, counts Snapshot) error
}

// OutcomeKind names a completed write.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeSubmitted  OutcomeKind = "submitted"
	OutcomeFailed     OutcomeKind = "failed"
	OutcomeUndone     OutcomeKind = "undone"
	OutcomeUndoFailed OutcomeKind = "undo_failed"
	OutcomeDiscarded  OutcomeKind = "discarded" // completed after Close
)

// Outcome describes a write that finished, for observers such as metrics or
// event streams.
type Outcome struct {
	BookID int64
	Kind   OutcomeKind
	Counts Snapshot // what was written
	Err    error
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithObserver registers a callback invoked after each write completes.
// It runs outside the reconciler lock.
func WithObserver(fn func(Outcome)) Option {
	return func(r *Reconciler) { r.observe = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// Reconciler owns one EditBuffer and reconciles it with the Store.
//
// All methods are safe for concurrent use. The lock is never held across the
// remote call; the Submitting/Reverting state is the gate.
type Reconciler struct {
	mu     sync.Mutex
	bookID int64
	buf    *EditBuffer
	state  State
	notice *Notice
	closed bool

	store   Store
	observe func(Outcome)
	logger  *slog.Logger
}

// NewReconciler starts a Clean session for a book whose ratings were just loaded.
func NewReconciler(bookID int64, loaded Snapshot, store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		bookID: bookID,
		buf:    NewEditBuffer(loaded),
		state:  StateClean,
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BookID returns the book this reconciler edits.
func (r *Reconciler) BookID() int64 { return r.bookID }

// View returns the current view.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// Increment adds one rating to a bucket.
func (r *Reconciler) Increment(star Star) (View, error) {
	return r.edit(func(b *EditBuffer) error { return b.Increment(star) })
}

// Decrement removes one rating from a bucket, flooring at zero.
func (r *Reconciler) Decrement(star Star) (View, error) {
	return r.edit(func(b *EditBuffer) error { return b.Decrement(star) })
}

// SetCount applies raw text input to a bucket. Input that is not a
// non-negative integer is ignored without error.
func (r *Reconciler) SetCount(star Star, raw string) (View, error) {
	return r.edit(func(b *EditBuffer) error {
		_, err := b.SetCountText(star, raw)
		return err
	})
}

func (r *Reconciler) edit(apply func(*EditBuffer) error) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return View{}, sessionClosed()
	}
	if r.state.Busy() {
		return r.viewLocked(), submitConflict()
	}
	if err := apply(r.buf); err != nil {
		return r.viewLocked(), err
	}
	r.notice = nil
	r.settleLocked()
	return r.viewLocked(), nil
}

// Submit writes the working copy to the store and waits for the outcome.
//
// A store failure is not returned as an error: local edits are rolled back
// and the returned view carries a failure notice. Errors are returned only
// when the submit could not start (in flight, nothing to submit, closed).
func (r *Reconciler) Submit(ctx context.Context) (View, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return View{}, sessionClosed()
	}
	if r.state.Busy() {
		v := r.viewLocked()
		r.mu.Unlock()
		return v, submitConflict()
	}
	if r.state != StateDirty {
		v := r.viewLocked()
		r.mu.Unlock()
		return v, noChanges()
	}
	counts := r.buf.Current()
	r.state = StateSubmitting
	r.notice = nil
	r.mu.Unlock()

	err := r.store.UpdateRatingCounts(context.WithoutCancel(ctx), r.bookID, counts)

	r.mu.Lock()
	outcome := Outcome{BookID: r.bookID, Counts: counts, Err: err}
	switch {
	case r.closed:
		outcome.Kind = OutcomeDiscarded
	case err != nil:
		r.buf.rollback()
		r.notice = &Notice{Kind: NoticeFailure, Message: MsgSubmitFailed}
		outcome.Kind = OutcomeFailed
	default:
		r.buf.commit()
		r.notice = &Notice{Kind: NoticeSuccess, Message: MsgSubmitted, Undo: true}
		outcome.Kind = OutcomeSubmitted
	}
	closed := r.closed
	if !closed {
		r.settleLocked()
	}
	v := r.viewLocked()
	r.mu.Unlock()

	r.report(outcome)
	if closed {
		return v, sessionClosed()
	}
	return v, nil
}

// Undo restores the counts from before the last successful submit by
// submitting them again. It is a compensating write, not a remote rollback:
// if it fails, the store keeps the post-submit counts and so does the buffer.
func (r *Reconciler) Undo(ctx context.Context) (View, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return View{}, sessionClosed()
	}
	if r.state.Busy() {
		v := r.viewLocked()
		r.mu.Unlock()
		return v, submitConflict()
	}
	restored, ok := r.buf.takeUndo()
	if !ok {
		v := r.viewLocked()
		r.mu.Unlock()
		return v, undoUnavailable()
	}
	r.state = StateReverting
	r.notice = nil
	r.mu.Unlock()

	err := r.store.UpdateRatingCounts(context.WithoutCancel(ctx), r.bookID, restored)

	r.mu.Lock()
	outcome := Outcome{BookID: r.bookID, Counts: restored, Err: err}
	switch {
	case r.closed:
		outcome.Kind = OutcomeDiscarded
	case err != nil:
		r.buf.rollback()
		r.notice = &Notice{Kind: NoticeUndoFailed, Message: MsgUndoFailed}
		outcome.Kind = OutcomeUndoFailed
	default:
		r.buf.confirmUndo()
		r.notice = &Notice{Kind: NoticeUndone, Message: MsgUndone}
		outcome.Kind = OutcomeUndone
	}
	closed := r.closed
	if !closed {
		r.settleLocked()
	}
	v := r.viewLocked()
	r.mu.Unlock()

	r.report(outcome)
	if closed {
		return v, sessionClosed()
	}
	return v, nil
}

// Close destroys the session. A write still in flight completes remotely but
// its outcome no longer touches the buffer.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// Closed reports whether Close was called.
func (r *Reconciler) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// settleLocked derives Clean/Dirty from the buffer.
func (r *Reconciler) settleLocked() {
	if r.buf.HasChanges() {
		r.state = StateDirty
	} else {
		r.state = StateClean
	}
}

func (r *Reconciler) viewLocked() View {
	counts := r.buf.Current()
	v := View{
		BookID:         r.bookID,
		State:          r.state,
		Counts:         counts,
		Total:          counts.Total(),
		Average:        counts.Average(),
		AverageDisplay: counts.AverageDisplay(),
		HasChanges:     r.buf.HasChanges(),
		UndoAvailable:  r.buf.UndoAvailable() && !r.state.Busy(),
	}
	if r.notice != nil {
		n := *r.notice
		v.Notice = &n
	}
	return v
}

func (r *Reconciler) report(o Outcome) {
	switch o.Kind {
	case OutcomeFailed, OutcomeUndoFailed:
		r.logger.Warn("rating write failed",
			"book_id", o.BookID, "outcome", o.Kind, "counts", o.Counts.String(), "error", o.Err)
	case OutcomeDiscarded:
		r.logger.Debug("rating write completed after session closed",
			"book_id", o.BookID, "error", o.Err)
	default:
		r.logger.Info("rating write completed",
			"book_id", o.BookID, "outcome", o.Kind, "counts", o.Counts.String())
	}
	if r.observe != nil {
		r.observe(o)
	}
}
