// Package catalogtest provides an in-memory fake of the remote Book API for
// tests of packages that talk to it through catalog.Client.
package catalogtest

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bookshelfapp/bookshelf-server/internal/catalog"
	"github.com/bookshelfapp/bookshelf-server/internal/domain"
)

// RatingWrite records one PATCH /book/rating request.
type RatingWrite struct {
	BookID int64
	Counts [5]int
}

// Server is a fake Book API backed by a map of books.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	books          map[string]domain.Book
	order          []string
	writes         []RatingWrite
	failRatings    int
	gate           chan struct{}
	started        chan struct{}
	omitPagination bool
}

// NewServer starts a fake Book API holding books. It is closed with the test.
func NewServer(t testing.TB, books ...domain.Book) *Server {
	t.Helper()

	s := &Server{books: make(map[string]domain.Book)}
	for _, b := range books {
		s.put(b)
	}

	r := chi.NewRouter()
	r.Get("/book/isbn/{isbn}", s.getBook)
	r.Delete("/book/isbn/{isbn}", s.deleteBook)
	r.Get("/book/all", s.listBooks)
	r.Patch("/book/rating", s.updateRatings)
	r.Post("/book", s.createBook)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// NewCatalogClient returns a client pointed at the fake with rate limits
// high enough not to slow tests down.
func (s *Server) NewCatalogClient(t testing.TB) *catalog.Client {
	t.Helper()
	c := catalog.New(catalog.Options{BaseURL: s.URL, RPS: 1000, Burst: 1000}, slog.New(slog.DiscardHandler))
	t.Cleanup(c.Close)
	return c
}

// Book returns the stored book for an ISBN.
func (s *Server) Book(isbn string) (domain.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[isbn]
	return b, ok
}

// RatingWrites returns the rating writes received so far.
func (s *Server) RatingWrites() []RatingWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.writes)
}

// FailRatingWrites makes the next n rating writes answer 500.
func (s *Server) FailRatingWrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRatings = n
}

// OmitPagination drops the pagination object from listings.
func (s *Server) OmitPagination() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitPagination = true
}

// BlockRatingWrites holds rating writes until release is called. started
// receives once per write that reaches the fake.
func (s *Server) BlockRatingWrites() (started <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gate := make(chan struct{})
	s.gate = gate
	s.started = make(chan struct{}, 16)

	var once sync.Once
	return s.started, func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

func (s *Server) put(b domain.Book) {
	isbn := b.ISBN()
	if _, ok := s.books[isbn]; !ok {
		s.order = append(s.order, isbn)
	}
	s.books[isbn] = b
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	b, ok := s.Book(chi.URLParam(r, "isbn"))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": b})
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[isbn]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(s.books, isbn)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == isbn })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := []domain.Book{}
	if s.omitPagination {
		for _, isbn := range s.order {
			entries = append(entries, s.books[isbn])
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
		return
	}

	for i := offset; i < len(s.order) && i < offset+limit; i++ {
		entries = append(entries, s.books[s.order[i]])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"pagination": map[string]int{
			"totalRecords": len(s.order),
			"limit":        limit,
			"offset":       offset,
		},
	})
}

func (s *Server) updateRatings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID          int64 `json:"id"`
		Rating1Star int   `json:"rating_1_star"`
		Rating2Star int   `json:"rating_2_star"`
		Rating3Star int   `json:"rating_3_star"`
		Rating4Star int   `json:"rating_4_star"`
		Rating5Star int   `json:"rating_5_star"`
	}
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	counts := [5]int{req.Rating1Star, req.Rating2Star, req.Rating3Star, req.Rating4Star, req.Rating5Star}

	s.mu.Lock()
	gate, started := s.gate, s.started
	s.mu.Unlock()
	if gate != nil {
		started <- struct{}{}
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes = append(s.writes, RatingWrite{BookID: req.ID, Counts: counts})
	if s.failRatings > 0 {
		s.failRatings--
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	for isbn, b := range s.books {
		if b.ID == req.ID {
			b.Ratings = domain.RatingsFromStars(counts)
			s.books[isbn] = b
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (s *Server) createBook(w http.ResponseWriter, r *http.Request) {
	var p domain.CreateBookPayload
	if err := json.UnmarshalRead(r.Body, &p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	isbn, err := domain.ParseISBN(p.ISBN13)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	year, _ := strconv.Atoi(p.Publication)

	b := domain.Book{
		ID:            id,
		ISBN13:        isbn,
		Authors:       p.Authors,
		Publication:   year,
		OriginalTitle: p.OriginalTitle,
		Title:         p.Title,
		Ratings:       p.Ratings,
		Icons:         p.Icons,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[b.ISBN()]; ok {
		w.WriteHeader(http.StatusConflict)
		return
	}
	s.put(b)
	writeJSON(w, http.StatusCreated, map[string]any{"entry": b})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.MarshalWrite(w, v)
}
