package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	"github.com/bookshelfapp/bookshelf-server/internal/metrics"
	"github.com/bookshelfapp/bookshelf-server/internal/search"
	"github.com/bookshelfapp/bookshelf-server/internal/sse"
)

// CatalogIndexer keeps the search index in step with the Book API by
// walking the full listing and replacing the index contents.
type CatalogIndexer struct {
	catalog  Catalog
	index    *search.SearchIndex
	emitter  EventEmitter
	pageSize int
	logger   *slog.Logger
}

// NewCatalogIndexer creates an indexer that reads pageSize books per request.
func NewCatalogIndexer(catalog Catalog, index *search.SearchIndex, emitter EventEmitter, pageSize int, logger *slog.Logger) *CatalogIndexer {
	if pageSize <= 0 {
		pageSize = MaxPageLimit
	}
	return &CatalogIndexer{
		catalog:  catalog,
		index:    index,
		emitter:  emitter,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Refresh re-indexes the whole catalog and returns the number of books indexed.
// The previous index keeps serving searches if the walk fails part way.
func (ix *CatalogIndexer) Refresh(ctx context.Context) (int, error) {
	start := time.Now()

	var books []domain.Book
	for offset := 0; ; {
		page, err := ix.catalog.ListBooks(ctx, ix.pageSize, offset)
		if err != nil {
			return 0, fmt.Errorf("list books at offset %d: %w", offset, err)
		}
		books = append(books, page.Books...)

		// Without pagination metadata the API returned everything it has.
		if !page.Paginated || len(page.Books) == 0 {
			break
		}
		offset += ix.pageSize
		if offset >= page.TotalRecords {
			break
		}
	}

	if err := ix.index.Replace(books); err != nil {
		return 0, fmt.Errorf("replace index: %w", err)
	}

	took := time.Since(start)
	metrics.IndexedBooks.Set(float64(len(books)))
	metrics.IndexRefreshDuration.Observe(took.Seconds())
	ix.emitter.Emit(sse.NewIndexRefreshedEvent(len(books), took))

	ix.logger.Info("catalog indexed", "books", len(books), "duration", took)
	return len(books), nil
}

// Run refreshes immediately and then every interval until ctx is done.
// A zero interval refreshes once. Failures are logged and retried on the next tick.
func (ix *CatalogIndexer) Run(ctx context.Context, interval time.Duration) {
	if _, err := ix.Refresh(ctx); err != nil {
		ix.logger.Error("initial catalog index failed", "error", err)
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := ix.Refresh(ctx); err != nil {
				ix.logger.Error("catalog re-index failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
