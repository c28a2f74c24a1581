package service

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bookshelfapp/bookshelf-server/internal/catalog/catalogtest"
	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	"github.com/bookshelfapp/bookshelf-server/internal/search"
	"github.com/bookshelfapp/bookshelf-server/internal/sse"
)

const (
	duneISBN  = "9780441172719"
	emmaISBN  = "9780141439587"
	unknownID = "9789999999999"
)

// recordingEmitter keeps emitted events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (e *recordingEmitter) Emit(event sse.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *recordingEmitter) types() []sse.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sse.EventType, 0, len(e.events))
	for _, evt := range e.events {
		out = append(out, evt.Type)
	}
	return out
}

func testBook(id int64, isbn, title string, stars [5]int) domain.Book {
	n, err := domain.ParseISBN(isbn)
	if err != nil {
		panic(err)
	}
	return domain.Book{
		ID:            id,
		ISBN13:        n,
		Title:         title,
		OriginalTitle: title,
		Authors:       "Test Author",
		Publication:   2000,
		Ratings:       domain.RatingsFromStars(stars),
		Icons:         domain.Icons{Large: domain.PlaceholderIcon, Small: domain.PlaceholderIcon},
	}
}

// scenarioStars is {5:10, 4:5, 3:2, 2:1, 1:1}.
var scenarioStars = [5]int{1, 1, 2, 5, 10}

func defaultBooks() []domain.Book {
	return []domain.Book{
		testBook(7, duneISBN, "Dune", scenarioStars),
		testBook(8, emmaISBN, "Emma", [5]int{0, 0, 3, 4, 2}),
	}
}

func newTestIndex(t *testing.T, books ...domain.Book) *search.SearchIndex {
	t.Helper()
	index, err := search.NewSearchIndex(search.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.Replace(books))
	return index
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ratingFixture wires a RatingService to a fake Book API.
type ratingFixture struct {
	api     *catalogtest.Server
	index   *search.SearchIndex
	emitter *recordingEmitter
	svc     *RatingService
}

func newRatingFixture(t *testing.T) *ratingFixture {
	t.Helper()
	books := defaultBooks()
	api := catalogtest.NewServer(t, books...)
	index := newTestIndex(t, books...)
	emitter := &recordingEmitter{}
	return &ratingFixture{
		api:     api,
		index:   index,
		emitter: emitter,
		svc:     NewRatingService(api.NewCatalogClient(t), index, emitter, discardLogger()),
	}
}
