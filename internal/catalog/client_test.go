package catalog

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	"github.com/bookshelfapp/bookshelf-server/internal/rating"
)

const duneJSON = `{
	"id": 7,
	"isbn13": 9780441172719,
	"authors": "Frank Herbert",
	"publication": 1965,
	"original_title": "Dune",
	"title": "Dune",
	"ratings": {"average": 4.2, "count": 19, "rating_1": 1, "rating_2": 1, "rating_3": 2, "rating_4": 5, "rating_5": 10},
	"icons": {"large": "https://img.test/l.jpg", "small": "https://img.test/s.jpg"}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Options{BaseURL: server.URL, RPS: 1000, Burst: 1000}, slog.New(slog.DiscardHandler))
	client.http = server.Client()
	t.Cleanup(client.Close)

	return client
}

func TestClient_GetBookByISBN(t *testing.T) {
	var gotPath, gotRequestID string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"entry": `+duneJSON+`}`)
	})

	book, err := client.GetBookByISBN(context.Background(), "9780441172719")
	require.NoError(t, err)

	assert.Equal(t, "/book/isbn/9780441172719", gotPath)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, int64(7), book.ID)
	assert.Equal(t, "9780441172719", book.ISBN())
	assert.Equal(t, 10, book.Ratings.Rating5)
	assert.Equal(t, "https://img.test/s.jpg", book.Icons.Small)
}

func TestClient_GetBookByISBN_Errors(t *testing.T) {
	tests := []struct {
		name       string
		isbn       string
		statusCode int
		response   string
		wantErr    error
	}{
		{"not found", "9780441172719", http.StatusNotFound, "", ErrNotFound},
		{"empty entry", "9780441172719", http.StatusOK, `{"entry": null}`, ErrNotFound},
		{"rate limited", "9780441172719", http.StatusTooManyRequests, "", ErrRateLimited},
		{"server error", "9780441172719", http.StatusBadGateway, "", ErrServer},
		{"negative counts", "9780441172719", http.StatusOK, `{"entry": {"id": 7, "isbn13": 1, "ratings": {"rating_2": -4}}}`, ErrMalformed},
		{"invalid isbn", "12345", http.StatusOK, "", ErrInvalidISBN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = io.WriteString(w, tt.response)
			})

			_, err := client.GetBookByISBN(context.Background(), tt.isbn)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var catErr *Error
			require.ErrorAs(t, err, &catErr)
			assert.Equal(t, "getBook", catErr.Op)
		})
	}
}

func TestClient_ListBooks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/book/all", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "20", r.URL.Query().Get("offset"))
		_, _ = io.WriteString(w, `{
			"entries": [`+duneJSON+`, {"id": 8, "isbn13": 2, "ratings": {"rating_1": -1}}],
			"pagination": {"totalRecords": 41, "limit": 10, "offset": 20}
		}`)
	})

	page, err := client.ListBooks(context.Background(), 10, 20)
	require.NoError(t, err)

	assert.True(t, page.Paginated)
	assert.Equal(t, 41, page.TotalRecords)
	require.Len(t, page.Books, 1, "malformed entry skipped")
	assert.Equal(t, "Dune", page.Books[0].Title)
}

func TestClient_ListBooks_WithoutPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"entries": [`+duneJSON+`, {"id": 8, "isbn13": 2, "ratings": {"rating_1": -1}}]}`)
	})

	page, err := client.ListBooks(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.False(t, page.Paginated)
	assert.Equal(t, 2, page.TotalRecords, "counts every entry the API returned")
	assert.Len(t, page.Books, 1)
}

func TestClient_UpdateRatings(t *testing.T) {
	var got map[string]int64
	var method string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		assert.Equal(t, "/book/rating", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.UnmarshalRead(r.Body, &got))
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.UpdateRatings(context.Background(), 7, [5]int{1, 2, 3, 4, 5})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, map[string]int64{
		"id":            7,
		"rating_1_star": 1,
		"rating_2_star": 2,
		"rating_3_star": 3,
		"rating_4_star": 4,
		"rating_5_star": 5,
	}, got)
}

func TestClient_UpdateRatings_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.UpdateRatings(context.Background(), 7, [5]int{})
	assert.ErrorIs(t, err, ErrServer)

	err = client.UpdateRatings(context.Background(), 7, [5]int{0, -1, 0, 0, 0})
	assert.ErrorIs(t, err, ErrBadRequest, "negative counts never leave the process")
}

func TestClient_SlowRatingWriteIsNotCutShort(t *testing.T) {
	var applied atomic.Bool
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(150 * time.Millisecond)
		applied.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	client.timeout = 50 * time.Millisecond

	r := rating.NewReconciler(7, rating.Snapshot{1, 1, 1, 1, 1}, NewRatingStore(client))
	_, err := r.Increment(5)
	require.NoError(t, err)

	v, err := r.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, v.Notice)
	assert.Equal(t, rating.NoticeSuccess, v.Notice.Kind)
	assert.Equal(t, rating.Snapshot{1, 1, 1, 1, 2}, v.Counts)
	assert.False(t, v.HasChanges)
	assert.True(t, applied.Load())
}

func TestClient_ReadsHonorTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(150 * time.Millisecond)
		_, _ = io.WriteString(w, `{"entry": `+duneJSON+`}`)
	})
	client.timeout = 50 * time.Millisecond

	_, err := client.GetBookByISBN(context.Background(), "9780441172719")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_DeleteBook(t *testing.T) {
	var method, path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.DeleteBook(context.Background(), "9780441172719"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/book/isbn/9780441172719", path)
}

func TestClient_CreateBook(t *testing.T) {
	t.Run("echoed entry", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/book", r.URL.Path)
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"entry": `+duneJSON+`}`)
		})

		book, err := client.CreateBook(context.Background(), domain.NewBook{
			ID: "7", Title: "Dune", Authors: "Frank Herbert", ISBN13: "9780441172719", Publication: "1965",
		}.Payload())
		require.NoError(t, err)
		assert.Equal(t, 19, book.Ratings.Count)
	})

	t.Run("empty response builds from payload", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})

		book, err := client.CreateBook(context.Background(), domain.NewBook{
			ID: "8", Title: "Emma", Authors: "Jane Austen", ISBN13: "9780141439587", Publication: "1815",
		}.Payload())
		require.NoError(t, err)
		assert.Equal(t, int64(8), book.ID)
		assert.Equal(t, int64(9780141439587), book.ISBN13)
		assert.Equal(t, 1815, book.Publication)
		assert.Equal(t, domain.PlaceholderIcon, book.Icons.Large)
	})

	t.Run("conflict", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})

		_, err := client.CreateBook(context.Background(), domain.CreateBookPayload{ISBN13: "9780141439587"})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client := New(Options{BaseURL: server.URL}, slog.New(slog.DiscardHandler))
	defer client.Close()
	server.Close()

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRatingStore_DrivesReconciler(t *testing.T) {
	var got map[string]int64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.UnmarshalRead(r.Body, &got))
		w.WriteHeader(http.StatusOK)
	})

	r := rating.NewReconciler(7, rating.Snapshot{1, 1, 2, 5, 10}, NewRatingStore(client))
	_, err := r.Increment(5)
	require.NoError(t, err)

	v, err := r.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, v.Notice)
	assert.Equal(t, rating.NoticeSuccess, v.Notice.Kind)
	assert.Equal(t, int64(11), got["rating_5_star"])
}
