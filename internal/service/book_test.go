package service

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelfapp/bookshelf-server/internal/catalog"
	"github.com/bookshelfapp/bookshelf-server/internal/catalog/catalogtest"
	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	domainerrors "github.com/bookshelfapp/bookshelf-server/internal/errors"
	"github.com/bookshelfapp/bookshelf-server/internal/rating"
	"github.com/bookshelfapp/bookshelf-server/internal/search"
	"github.com/bookshelfapp/bookshelf-server/internal/sse"
	"github.com/bookshelfapp/bookshelf-server/internal/validation"
)

type bookFixture struct {
	api      *catalogtest.Server
	index    *search.SearchIndex
	emitter  *recordingEmitter
	sessions *RatingService
	svc      *BookService
}

func newBookFixture(t *testing.T, books ...domain.Book) *bookFixture {
	t.Helper()
	api := catalogtest.NewServer(t, books...)
	client := api.NewCatalogClient(t)
	index := newTestIndex(t, books...)
	emitter := &recordingEmitter{}
	sessions := NewRatingService(client, index, emitter, discardLogger())
	return &bookFixture{
		api:      api,
		index:    index,
		emitter:  emitter,
		sessions: sessions,
		svc:      NewBookService(client, index, sessions, emitter, discardLogger()),
	}
}

func numberedBooks(n int) []domain.Book {
	books := make([]domain.Book, 0, n)
	for i := 1; i <= n; i++ {
		books = append(books, testBook(int64(i), fmt.Sprintf("97800000%05d", i), fmt.Sprintf("Book %d", i), [5]int{}))
	}
	return books
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		records, limit, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{19, 10, 2},
		{21, 10, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, totalPages(tt.records, tt.limit), "%d records", tt.records)
	}
}

func TestBookService_ListBooks(t *testing.T) {
	f := newBookFixture(t, numberedBooks(12)...)
	ctx := context.Background()

	first, err := f.svc.ListBooks(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, DefaultPageLimit, first.Limit)
	assert.Len(t, first.Books, 10)
	assert.Equal(t, 12, first.TotalRecords)
	assert.Equal(t, 2, first.TotalPages)

	second, err := f.svc.ListBooks(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, second.Books, 2)
	assert.Equal(t, "Book 11", second.Books[0].Title)
}

func TestBookService_ListBooksWithoutPagination(t *testing.T) {
	f := newBookFixture(t, numberedBooks(12)...)
	f.api.OmitPagination()

	page, err := f.svc.ListBooks(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 12, page.TotalRecords, "falls back to the entry count")
	assert.Equal(t, 3, page.TotalPages)
}

func TestBookService_ListBooksWithoutPaginationCountsMalformedEntries(t *testing.T) {
	broken := testBook(99, "9780000099999", "Broken", [5]int{0, -2, 0, 0, 0})
	f := newBookFixture(t, append(numberedBooks(10), broken)...)
	f.api.OmitPagination()

	page, err := f.svc.ListBooks(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Len(t, page.Books, 10)
	assert.Equal(t, 11, page.TotalRecords)
	assert.Equal(t, 3, page.TotalPages)
}

func TestBookService_ListBooksUpstreamDown(t *testing.T) {
	down := httptest.NewServer(nil)
	down.Close()
	client := catalog.New(catalog.Options{BaseURL: down.URL}, discardLogger())
	t.Cleanup(client.Close)

	svc := NewBookService(client, newTestIndex(t), nil, NewNoopEmitter(), discardLogger())
	_, err := svc.ListBooks(context.Background(), 1, 10)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeUpstream, domainErr.Code)
	assert.Equal(t, msgLoadFailed, domainErr.Message)
}

func TestBookService_GetBook(t *testing.T) {
	f := newBookFixture(t, defaultBooks()...)

	detail, err := f.svc.GetBook(context.Background(), duneISBN)
	require.NoError(t, err)

	assert.Equal(t, "Dune", detail.Book.Title)
	assert.Equal(t, 19, detail.Total)
	assert.InDelta(t, 79.0/19.0, detail.Average, 1e-9)
	assert.Equal(t, "4.2", detail.AverageDisplay)

	require.Len(t, detail.Breakdown, 5)
	assert.Equal(t, rating.Star(5), detail.Breakdown[0].Star)
	assert.Equal(t, 10, detail.Breakdown[0].Count)
	assert.InDelta(t, 100.0*10/19, detail.Breakdown[0].Percent, 1e-9)
	assert.Equal(t, rating.Star(1), detail.Breakdown[4].Star)
}

func TestBookService_GetBookErrors(t *testing.T) {
	f := newBookFixture(t, defaultBooks()...)

	_, err := f.svc.GetBook(context.Background(), unknownID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = f.svc.GetBook(context.Background(), "978-0441172719")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func validNewBook() domain.NewBook {
	return domain.NewBook{
		ID:          "42",
		Title:       "  The Colour of Magic ",
		Authors:     "Terry Pratchett,  terry pratchett",
		ISBN13:      "9780552124751",
		Publication: "1983",
		Description: "<p>The <b>first</b> Discworld novel.</p>",
	}
}

func TestBookService_CreateBook(t *testing.T) {
	f := newBookFixture(t)

	book, err := f.svc.CreateBook(context.Background(), validNewBook())
	require.NoError(t, err)

	assert.Equal(t, int64(42), book.ID)
	assert.Equal(t, "The Colour of Magic", book.Title)
	assert.Equal(t, "The Colour of Magic", book.OriginalTitle, "original title defaults to title")
	assert.Equal(t, "Terry Pratchett", book.Authors)
	assert.Equal(t, domain.PlaceholderIcon, book.Icons.Large)
	assert.Equal(t, 0, book.Ratings.Count)

	_, ok := f.api.Book("9780552124751")
	assert.True(t, ok)

	result, err := f.index.Search(context.Background(), search.SearchParams{Query: "magic"})
	require.NoError(t, err)
	require.Len(t, result.Books, 1)

	assert.Equal(t, []sse.EventType{sse.EventBookCreated}, f.emitter.types())
}

func TestBookService_CreateBookValidation(t *testing.T) {
	f := newBookFixture(t)

	tests := []struct {
		name    string
		mutate  func(*domain.NewBook)
		wantMsg string
	}{
		{"missing id", func(b *domain.NewBook) { b.ID = "" }, "id is required"},
		{"blank title", func(b *domain.NewBook) { b.Title = "   " }, "title is required"},
		{"short isbn", func(b *domain.NewBook) { b.ISBN13 = "978055212475" }, "isbn13 must be exactly 13 digits"},
		{"bad image url", func(b *domain.NewBook) { b.ImageURL = "not a url" }, "image_url must be a valid URL"},
		{"first failure wins", func(b *domain.NewBook) { b.Title = ""; b.Authors = "" }, "title is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validNewBook()
			tt.mutate(&form)

			_, err := f.svc.CreateBook(context.Background(), form)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Equal(t, tt.wantMsg, domainErr.Message)
			_, isFieldList := domainErr.Details.([]validation.FieldError)
			assert.True(t, isFieldList)
		})
	}

	assert.Empty(t, f.emitter.types())
}

func TestBookService_CreateDuplicate(t *testing.T) {
	f := newBookFixture(t, defaultBooks()...)

	form := validNewBook()
	form.ISBN13 = duneISBN
	_, err := f.svc.CreateBook(context.Background(), form)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestBookService_DeleteBook(t *testing.T) {
	f := newBookFixture(t, defaultBooks()...)
	ctx := context.Background()

	sess, err := f.sessions.Open(ctx, duneISBN)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteBook(ctx, duneISBN))

	_, ok := f.api.Book(duneISBN)
	assert.False(t, ok)

	_, err = f.sessions.Get(sess.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound, "open sessions close with the book")

	result, err := f.index.Search(ctx, search.SearchParams{Query: "dune"})
	require.NoError(t, err)
	assert.Empty(t, result.Books)

	assert.Contains(t, f.emitter.types(), sse.EventBookDeleted)
}

func TestBookService_DeleteBookFailures(t *testing.T) {
	f := newBookFixture(t, defaultBooks()...)

	err := f.svc.DeleteBook(context.Background(), unknownID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	down := httptest.NewServer(nil)
	down.Close()
	client := catalog.New(catalog.Options{BaseURL: down.URL}, discardLogger())
	t.Cleanup(client.Close)
	svc := NewBookService(client, f.index, nil, NewNoopEmitter(), discardLogger())

	err = svc.DeleteBook(context.Background(), duneISBN)
	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeUpstream, domainErr.Code)
	assert.Equal(t, "Failed to delete book. Please try again later.", domainErr.Message)

	// A failed delete leaves the index alone.
	result, err := f.index.Search(context.Background(), search.SearchParams{Query: "dune"})
	require.NoError(t, err)
	assert.Len(t, result.Books, 1)
}
