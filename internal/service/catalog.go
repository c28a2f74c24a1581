// Package service provides the business logic behind the dashboard API:
// catalog browsing, search, rating edit sessions and the account forms.
package service

import (
	"context"

	"github.com/bookshelfapp/bookshelf-server/internal/catalog"
	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	domainerrors "github.com/bookshelfapp/bookshelf-server/internal/errors"
	"github.com/bookshelfapp/bookshelf-server/internal/sse"
)

// Catalog is the remote Book API as the services use it.
// *catalog.Client implements it.
type Catalog interface {
	GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error)
	ListBooks(ctx context.Context, limit, offset int) (*catalog.Page, error)
	UpdateRatings(ctx context.Context, bookID int64, counts [5]int) error
	DeleteBook(ctx context.Context, isbn string) error
	CreateBook(ctx context.Context, p domain.CreateBookPayload) (*domain.Book, error)
	Ping(ctx context.Context) error
}

var _ Catalog = (*catalog.Client)(nil)

// EventEmitter publishes realtime events to connected dashboards.
type EventEmitter interface {
	Emit(event sse.Event)
}

// NoopEmitter discards events.
type NoopEmitter struct{}

// Emit implements EventEmitter.
func (NoopEmitter) Emit(sse.Event) {}

// NewNoopEmitter returns an emitter that drops every event.
func NewNoopEmitter() EventEmitter { return NoopEmitter{} }

// Messages shown when the Book API cannot serve a request.
const (
	msgBookNotFound   = "Book not found"
	msgInvalidISBN    = "ISBN-13 must be exactly 13 digits"
	msgLoadFailed     = "Failed to load books. Please try again later."
	msgDeleteFailed   = "Failed to delete book. Please try again later."
	msgCreateFailed   = "Failed to create book. Please try again later."
	msgBookExists     = "A book with this ISBN already exists"
	msgCatalogBusy    = "The book service is busy. Please try again shortly."
	msgCatalogRefused = "The book service rejected the request"
)

// catalogError maps Book API failures onto domain errors. failure is the
// message used for transport and server errors.
func catalogError(err error, failure string) error {
	switch {
	case domainerrors.Is(err, catalog.ErrNotFound):
		return domainerrors.NotFound(msgBookNotFound).WithCause(err)
	case domainerrors.Is(err, catalog.ErrInvalidISBN):
		return domainerrors.Validation(msgInvalidISBN).WithCause(err)
	case domainerrors.Is(err, catalog.ErrAlreadyExists):
		return domainerrors.AlreadyExists(msgBookExists).WithCause(err)
	case domainerrors.Is(err, catalog.ErrBadRequest):
		return domainerrors.Validation(msgCatalogRefused).WithCause(err)
	case domainerrors.Is(err, catalog.ErrRateLimited):
		return domainerrors.RateLimited(msgCatalogBusy).WithCause(err)
	default:
		return domainerrors.Upstream(failure).WithCause(err)
	}
}
