package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	domainerrors "github.com/bookshelfapp/bookshelf-server/internal/errors"
	"github.com/bookshelfapp/bookshelf-server/internal/normalize"
	"github.com/bookshelfapp/bookshelf-server/internal/rating"
	"github.com/bookshelfapp/bookshelf-server/internal/search"
	"github.com/bookshelfapp/bookshelf-server/internal/sse"
	"github.com/bookshelfapp/bookshelf-server/internal/validation"
)

// Listing defaults.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// BookPage is one page of the catalog listing.
type BookPage struct {
	Books        []domain.Book
	Page         int
	Limit        int
	TotalPages   int
	TotalRecords int
}

// BookDetail is a book with its rating breakdown.
type BookDetail struct {
	Book           *domain.Book
	Total          int
	Average        float64
	AverageDisplay string
	Breakdown      []rating.StarShare
}

// SessionCloser closes the rating sessions of a deleted book.
type SessionCloser interface {
	CloseBookSessions(isbn string) int
}

// BookService orchestrates catalog book operations.
type BookService struct {
	catalog   Catalog
	index     *search.SearchIndex
	sessions  SessionCloser
	emitter   EventEmitter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a new book service. sessions may be nil.
func NewBookService(catalog Catalog, index *search.SearchIndex, sessions SessionCloser, emitter EventEmitter, logger *slog.Logger) *BookService {
	return &BookService{
		catalog:   catalog,
		index:     index,
		sessions:  sessions,
		emitter:   emitter,
		validator: validation.New(),
		logger:    logger,
	}
}

// ListBooks returns one page of the catalog. page starts at 1.
func (s *BookService) ListBooks(ctx context.Context, page, limit int) (*BookPage, error) {
	page = max(page, 1)
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}

	result, err := s.catalog.ListBooks(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, catalogError(err, msgLoadFailed)
	}

	return &BookPage{
		Books:        result.Books,
		Page:         page,
		Limit:        limit,
		TotalPages:   totalPages(result.TotalRecords, limit),
		TotalRecords: result.TotalRecords,
	}, nil
}

// totalPages rounds up and never reports fewer than one page.
func totalPages(records, limit int) int {
	return max((records+limit-1)/limit, 1)
}

// GetBook returns a book and its rating breakdown.
func (s *BookService) GetBook(ctx context.Context, isbn string) (*BookDetail, error) {
	if !validation.IsISBN13(isbn) {
		return nil, domainerrors.Validation(msgInvalidISBN)
	}

	book, err := s.catalog.GetBookByISBN(ctx, isbn)
	if err != nil {
		return nil, catalogError(err, msgLoadFailed)
	}

	snap := rating.SnapshotOf(book.Ratings)
	view := rating.View{Counts: snap}
	return &BookDetail{
		Book:           book,
		Total:          snap.Total(),
		Average:        snap.Average(),
		AverageDisplay: snap.AverageDisplay(),
		Breakdown:      view.Breakdown(),
	}, nil
}

// CreateBook validates the create form and adds the book to the catalog.
func (s *BookService) CreateBook(ctx context.Context, form domain.NewBook) (*domain.Book, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}

	payload := form.Payload()
	payload.Authors = normalize.Authors(payload.Authors)
	payload.Title = normalize.Whitespace(payload.Title)
	payload.OriginalTitle = normalize.Whitespace(payload.OriginalTitle)
	payload.Description = normalize.Description(payload.Description)

	book, err := s.catalog.CreateBook(ctx, payload)
	if err != nil {
		return nil, catalogError(err, msgCreateFailed)
	}

	if err := s.index.Upsert(*book); err != nil {
		s.logger.Warn("failed to index created book", "isbn", book.ISBN(), "error", err)
	}
	s.emitter.Emit(sse.NewBookCreatedEvent(book))

	s.logger.Info("book created", "isbn", book.ISBN(), "title", book.Title)
	return book, nil
}

// DeleteBook removes a book from the catalog, the search index and any
// open rating sessions.
func (s *BookService) DeleteBook(ctx context.Context, isbn string) error {
	if !validation.IsISBN13(isbn) {
		return domainerrors.Validation(msgInvalidISBN)
	}

	if err := s.catalog.DeleteBook(ctx, isbn); err != nil {
		s.logger.Warn("delete book failed", "isbn", isbn, "error", err)
		return catalogError(err, msgDeleteFailed)
	}

	if err := s.index.Delete(isbn); err != nil {
		s.logger.Warn("failed to remove deleted book from index", "isbn", isbn, "error", err)
	}
	closed := 0
	if s.sessions != nil {
		closed = s.sessions.CloseBookSessions(isbn)
	}
	s.emitter.Emit(sse.NewBookDeletedEvent(isbn, time.Now()))

	s.logger.Info("book deleted", "isbn", isbn, "sessions_closed", closed)
	return nil
}
