package search

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
)

// batchSize bounds each Bleve batch during a full load.
const batchSize = 500

// SearchIndex wraps an in-memory Bleve index of catalog books and keeps the
// indexed books for hit hydration.
//
// Thread safety: All public methods are safe for concurrent use.
// Replace builds a fresh index off-lock and swaps it in.
type SearchIndex struct {
	mu        sync.RWMutex
	index     bleve.Index
	books     map[string]domain.Book // by ISBN
	refreshed time.Time
	logger    *slog.Logger
}

// Options configures the search index.
type Options struct {
	Logger *slog.Logger // Logger for operations (uses discard if nil)
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SearchIndex{
		index:  index,
		books:  make(map[string]domain.Book),
		logger: logger,
	}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// Upsert indexes or re-indexes one book.
func (s *SearchIndex) Upsert(b domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := NewBookDocument(&b)
	if err := s.index.Index(doc.ISBN, doc.ToMap()); err != nil {
		return fmt.Errorf("index %s: %w", doc.ISBN, err)
	}
	s.books[doc.ISBN] = b
	return nil
}

// UpdateRatings refreshes the rating fields of an indexed book.
// Unknown ISBNs are ignored; the next refresh picks them up.
func (s *SearchIndex) UpdateRatings(isbn string, r domain.Ratings) error {
	s.mu.RLock()
	b, ok := s.books[isbn]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	b.Ratings = r
	return s.Upsert(b)
}

// Delete removes a book from the index.
func (s *SearchIndex) Delete(isbn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Delete(isbn); err != nil {
		return fmt.Errorf("delete %s: %w", isbn, err)
	}
	delete(s.books, isbn)
	return nil
}

// Replace rebuilds the index from a complete catalog listing and swaps it in.
// Searches keep running against the old index until the swap.
func (s *SearchIndex) Replace(books []domain.Book) error {
	next, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	byISBN := make(map[string]domain.Book, len(books))
	for i := 0; i < len(books); i += batchSize {
		end := min(i+batchSize, len(books))

		batch := next.NewBatch()
		for j := i; j < end; j++ {
			doc := NewBookDocument(&books[j])
			if err := batch.Index(doc.ISBN, doc.ToMap()); err != nil {
				_ = next.Close()
				return fmt.Errorf("batch index %s: %w", doc.ISBN, err)
			}
			byISBN[doc.ISBN] = books[j]
		}
		if err := next.Batch(batch); err != nil {
			_ = next.Close()
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	s.mu.Lock()
	old := s.index
	s.index = next
	s.books = byISBN
	s.refreshed = time.Now()
	s.mu.Unlock()

	if err := old.Close(); err != nil {
		s.logger.Warn("failed to close previous search index", "error", err)
	}
	s.logger.Info("search index replaced", "books", len(byISBN))
	return nil
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// LastRefreshed returns when Replace last succeeded; zero if never.
func (s *SearchIndex) LastRefreshed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshed
}
