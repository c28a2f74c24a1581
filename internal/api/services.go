package api

import (
	"context"
	"time"

	"github.com/bookshelfapp/bookshelf-server/internal/service"
)

// CatalogPinger reports whether the remote Book API is reachable.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// IndexStats exposes the search index figures shown by the health check.
type IndexStats interface {
	DocumentCount() (uint64, error)
	LastRefreshed() time.Time
}

// ClientCounter reports connected SSE clients.
type ClientCounter interface {
	ClientCount() int
}

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Book    *service.BookService
	Search  *service.SearchService
	Rating  *service.RatingService
	Account *service.AccountService

	// Health check probes. Any of them may be nil.
	Catalog CatalogPinger
	Index   IndexStats
	Events  ClientCounter
}
