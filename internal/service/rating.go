package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bookshelfapp/bookshelf-server/internal/catalog"
	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	domainerrors "github.com/bookshelfapp/bookshelf-server/internal/errors"
	"github.com/bookshelfapp/bookshelf-server/internal/id"
	"github.com/bookshelfapp/bookshelf-server/internal/metrics"
	"github.com/bookshelfapp/bookshelf-server/internal/rating"
	"github.com/bookshelfapp/bookshelf-server/internal/search"
	"github.com/bookshelfapp/bookshelf-server/internal/sse"
	"github.com/bookshelfapp/bookshelf-server/internal/validation"
)

const msgUnsavedChanges = "You have unsaved changes. Discard them to leave."

// SessionView is a rating session's view plus the book it edits.
type SessionView struct {
	ID    string
	ISBN  string
	Title string
	rating.View
}

// ratingSession is one open book view: a reconciler and its bookkeeping.
type ratingSession struct {
	id       string
	isbn     string
	title    string
	rec      *rating.Reconciler
	lastUsed time.Time
}

// RatingService owns the open rating edit sessions. Each session wraps a
// Reconciler for one book; sessions are closed explicitly, when their book
// is deleted, or by the idle sweeper.
type RatingService struct {
	catalog Catalog
	store   rating.Store
	index   *search.SearchIndex
	emitter EventEmitter
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*ratingSession
}

// NewRatingService creates a new rating service.
func NewRatingService(catalogClient Catalog, index *search.SearchIndex, emitter EventEmitter, logger *slog.Logger) *RatingService {
	return &RatingService{
		catalog:  catalogClient,
		store:    catalog.NewRatingStore(catalogClient),
		index:    index,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*ratingSession),
	}
}

// Open loads a book and starts an edit session on its ratings.
// An unknown ISBN is a NotFound error; no session is created.
func (s *RatingService) Open(ctx context.Context, isbn string) (*SessionView, error) {
	if !validation.IsISBN13(isbn) {
		return nil, domainerrors.Validation(msgInvalidISBN)
	}

	book, err := s.catalog.GetBookByISBN(ctx, isbn)
	if err != nil {
		return nil, catalogError(err, msgLoadFailed)
	}

	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, domainerrors.Internal("Failed to open rating session").WithCause(err)
	}

	sess := &ratingSession{
		id:       sessionID,
		isbn:     book.ISBN(),
		title:    book.Title,
		lastUsed: s.now(),
	}
	sess.rec = rating.NewReconciler(book.ID, rating.SnapshotOf(book.Ratings), s.store,
		rating.WithLogger(s.logger.With("session_id", sessionID, "isbn", sess.isbn)),
		rating.WithObserver(func(o rating.Outcome) { s.observe(sess, o) }),
	)

	s.mu.Lock()
	s.sessions[sessionID] = sess
	open := len(s.sessions)
	s.mu.Unlock()

	metrics.OpenSessions.Set(float64(open))
	s.logger.Info("rating session opened", "session_id", sessionID, "isbn", sess.isbn, "open_sessions", open)

	v := sess.view(sess.rec.View())
	return &v, nil
}

// Get returns a session's current view.
func (s *RatingService) Get(sessionID string) (*SessionView, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	v := sess.view(sess.rec.View())
	return &v, nil
}

// Increment adds one rating to a star bucket.
func (s *RatingService) Increment(sessionID, star string) (*SessionView, error) {
	return s.edit(sessionID, star, func(r *rating.Reconciler, st rating.Star) (rating.View, error) {
		return r.Increment(st)
	})
}

// Decrement removes one rating from a star bucket, flooring at zero.
func (s *RatingService) Decrement(sessionID, star string) (*SessionView, error) {
	return s.edit(sessionID, star, func(r *rating.Reconciler, st rating.Star) (rating.View, error) {
		return r.Decrement(st)
	})
}

// SetCount applies raw text input to a star bucket. Input that is not a
// non-negative integer leaves the bucket unchanged.
func (s *RatingService) SetCount(sessionID, star, raw string) (*SessionView, error) {
	return s.edit(sessionID, star, func(r *rating.Reconciler, st rating.Star) (rating.View, error) {
		return r.SetCount(st, raw)
	})
}

func (s *RatingService) edit(sessionID, rawStar string, apply func(*rating.Reconciler, rating.Star) (rating.View, error)) (*SessionView, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	star, err := rating.ParseStar(rawStar)
	if err != nil {
		return nil, err
	}
	v, err := apply(sess.rec, star)
	return s.result(sess, v, err)
}

// Submit writes the session's counts to the Book API. A failed write is not
// an error: the view comes back rolled back with a failure notice.
func (s *RatingService) Submit(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	v, err := sess.rec.Submit(ctx)
	return s.result(sess, v, err)
}

// Undo restores the counts from before the last successful submit with a
// compensating write.
func (s *RatingService) Undo(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	v, err := sess.rec.Undo(ctx)
	return s.result(sess, v, err)
}

// Discard closes a session. Unsaved changes are only thrown away with force.
func (s *RatingService) Discard(sessionID string, force bool) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	if !force && sess.rec.View().HasChanges {
		return domainerrors.Conflict(msgUnsavedChanges)
	}
	s.close(sess, "discarded")
	return nil
}

// CloseBookSessions closes every session editing the given book.
func (s *RatingService) CloseBookSessions(isbn string) int {
	s.mu.Lock()
	var matched []*ratingSession
	for _, sess := range s.sessions {
		if sess.isbn == isbn {
			matched = append(matched, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range matched {
		s.close(sess, "book deleted")
	}
	return len(matched)
}

// Sweep closes sessions idle for longer than ttl. Sessions with a write in
// flight are left alone until it completes.
func (s *RatingService) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	var idle []*ratingSession
	for _, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			idle = append(idle, sess)
		}
	}
	s.mu.Unlock()

	expired := 0
	for _, sess := range idle {
		if sess.rec.View().State.Busy() {
			continue
		}
		s.close(sess, "idle")
		expired++
	}
	if expired > 0 {
		metrics.SessionsExpiredTotal.Add(float64(expired))
	}
	return expired
}

// RunSweeper sweeps idle sessions every interval until ctx is done.
func (s *RatingService) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(ttl); n > 0 {
				s.logger.Info("expired idle rating sessions", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown closes every open session.
func (s *RatingService) Shutdown() {
	s.mu.Lock()
	all := make([]*ratingSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		all = append(all, sess)
	}
	s.mu.Unlock()

	for _, sess := range all {
		s.close(sess, "shutdown")
	}
}

// OpenSessions returns the number of open sessions.
func (s *RatingService) OpenSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *RatingService) lookup(sessionID string) (*ratingSession, error) {
	if !id.HasPrefix(sessionID, id.PrefixSession) {
		return nil, domainerrors.NotFoundf("rating session %q not found", sessionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domainerrors.NotFoundf("rating session %q not found", sessionID)
	}
	sess.lastUsed = s.now()
	return sess, nil
}

func (s *RatingService) close(sess *ratingSession, reason string) {
	s.mu.Lock()
	if _, ok := s.sessions[sess.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, sess.id)
	open := len(s.sessions)
	s.mu.Unlock()

	sess.rec.Close()
	metrics.OpenSessions.Set(float64(open))
	s.logger.Info("rating session closed", "session_id", sess.id, "isbn", sess.isbn, "reason", reason)
}

// result converts a reconciler result into the service's return values.
func (s *RatingService) result(sess *ratingSession, v rating.View, err error) (*SessionView, error) {
	if err != nil {
		if domainerrors.Is(err, rating.ErrSubmitConflict) {
			metrics.RatingConflictsTotal.Inc()
		}
		return nil, err
	}
	sv := sess.view(v)
	return &sv, nil
}

// observe publishes a completed write: metrics, index freshness and SSE.
// It runs on the goroutine that made the write, after the reconciler lock is released.
func (s *RatingService) observe(sess *ratingSession, o rating.Outcome) {
	metrics.RatingWritesTotal.WithLabelValues(string(o.Kind)).Inc()

	if o.Err == nil {
		if err := s.index.UpdateRatings(sess.isbn, domain.RatingsFromStars(o.Counts)); err != nil {
			s.logger.Warn("failed to refresh indexed ratings", "isbn", sess.isbn, "error", err)
		}
	}

	data := sse.RatingEventData{
		BookID:  o.BookID,
		ISBN:    sess.isbn,
		Counts:  o.Counts,
		Total:   o.Counts.Total(),
		Average: o.Counts.Average(),
	}

	switch o.Kind {
	case rating.OutcomeSubmitted:
		s.emitter.Emit(sse.NewRatingEvent(sse.EventRatingSubmitted, data))
	case rating.OutcomeUndone:
		s.emitter.Emit(sse.NewRatingEvent(sse.EventRatingUndone, data))
	case rating.OutcomeFailed, rating.OutcomeUndoFailed:
		data.Error = o.Err.Error()
		s.emitter.Emit(sse.NewRatingEvent(sse.EventRatingFailed, data))
	case rating.OutcomeDiscarded:
		// The write landed (or not) after the view closed; other viewers
		// still learn about a successful write.
		if o.Err == nil {
			s.emitter.Emit(sse.NewRatingEvent(sse.EventRatingSubmitted, data))
		}
	}
}

func (sess *ratingSession) view(v rating.View) SessionView {
	return SessionView{
		ID:    sess.id,
		ISBN:  sess.isbn,
		Title: sess.title,
		View:  v,
	}
}
