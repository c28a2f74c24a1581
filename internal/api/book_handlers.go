package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	"github.com/bookshelfapp/bookshelf-server/internal/rating"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns one page of the catalog",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{isbn}",
		Summary:     "Get book",
		Description: "Returns a book with its per-star rating breakdown",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a book to the catalog. Ratings start at zero.",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{isbn}",
		Summary:     "Delete book",
		Description: "Removes a book from the catalog and closes its open rating sessions",
		Tags:        []string{"Books"},
	}, s.handleDeleteBook)
}

// === DTOs ===

// IconsResponse holds cover image URLs.
type IconsResponse struct {
	Large string `json:"large" doc:"Large cover URL"`
	Small string `json:"small" doc:"Small cover URL"`
}

// BookResponse contains book data in API responses.
type BookResponse struct {
	ID            int64         `json:"id" doc:"Catalog ID"`
	ISBN13        string        `json:"isbn13" doc:"13 digit ISBN"`
	Title         string        `json:"title" doc:"Title"`
	OriginalTitle string        `json:"original_title" doc:"Title in the original language"`
	Authors       string        `json:"authors" doc:"Comma-separated authors"`
	Publication   int           `json:"publication" doc:"Publication year"`
	Average       float64       `json:"average" doc:"Average star rating"`
	RatingCount   int           `json:"rating_count" doc:"Number of ratings"`
	Icons         IconsResponse `json:"icons" doc:"Cover images"`
}

// StarShareResponse is one row of a rating breakdown.
type StarShareResponse struct {
	Star    int     `json:"star" doc:"Star value, 5 to 1"`
	Count   int     `json:"count" doc:"Ratings with this star value"`
	Percent float64 `json:"percent" doc:"Share of all ratings, 0-100"`
}

// RatingSummaryResponse contains the aggregate ratings of a book.
type RatingSummaryResponse struct {
	Counts         map[string]int      `json:"counts" doc:"Ratings per star, keyed \"1\" to \"5\""`
	Total          int                 `json:"total" doc:"Total ratings"`
	Average        float64             `json:"average" doc:"Weighted average"`
	AverageDisplay string              `json:"average_display" doc:"Average rounded to one decimal"`
	Breakdown      []StarShareResponse `json:"breakdown" doc:"Per-star shares ordered 5 to 1"`
}

// BookDetailResponse is a book with its rating breakdown.
type BookDetailResponse struct {
	Book    BookResponse          `json:"book" doc:"Book"`
	Ratings RatingSummaryResponse `json:"ratings" doc:"Rating summary"`
}

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	Page  int `query:"page" minimum:"0" doc:"Page number starting at 1 (default 1)"`
	Limit int `query:"limit" minimum:"0" maximum:"100" doc:"Books per page (default 10)"`
}

// ListBooksResponse contains one page of books.
type ListBooksResponse struct {
	Books        []BookResponse `json:"books" doc:"Books on this page"`
	Page         int            `json:"page" doc:"Current page"`
	Limit        int            `json:"limit" doc:"Page size"`
	TotalPages   int            `json:"total_pages" doc:"Number of pages, at least 1"`
	TotalRecords int            `json:"total_records" doc:"Books in the catalog"`
}

// ListBooksOutput wraps the list books response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// GetBookInput contains parameters for getting a book.
type GetBookInput struct {
	ISBN string `path:"isbn" doc:"13 digit ISBN"`
}

// BookDetailOutput wraps the book detail response for Huma.
type BookDetailOutput struct {
	Body BookDetailResponse
}

// CreateBookRequest is the request body for creating a book. Every field is
// optional to the decoder; the form rules are applied by the book service
// so that errors name the first failing field in form order.
type CreateBookRequest struct {
	ID            string `json:"id" required:"false" doc:"Catalog identifier"`
	Title         string `json:"title" required:"false" doc:"Title"`
	OriginalTitle string `json:"original_title" required:"false" doc:"Original title (defaults to title)"`
	Authors       string `json:"authors" required:"false" doc:"Comma-separated author names"`
	ISBN13        string `json:"isbn13" required:"false" doc:"13 digit ISBN"`
	Publication   string `json:"publication" required:"false" doc:"Publication year"`
	Publisher     string `json:"publisher" required:"false" doc:"Publisher"`
	Description   string `json:"description" required:"false" doc:"HTML or plain text; stored as Markdown"`
	ImageURL      string `json:"image_url" required:"false" doc:"Cover image URL (defaults to a placeholder)"`
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body CreateBookRequest
}

// BookOutput wraps a single book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// DeleteBookInput contains parameters for deleting a book.
type DeleteBookInput struct {
	ISBN string `path:"isbn" doc:"13 digit ISBN"`
}

// MessageResponse is a confirmation message.
type MessageResponse struct {
	Message string `json:"message" doc:"Confirmation message"`
}

// MessageOutput wraps a confirmation message for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	page, err := s.services.Book.ListBooks(ctx, input.Page, input.Limit)
	if err != nil {
		return nil, err
	}

	books := make([]BookResponse, 0, len(page.Books))
	for i := range page.Books {
		books = append(books, toBookResponse(&page.Books[i]))
	}

	return &ListBooksOutput{
		Body: ListBooksResponse{
			Books:        books,
			Page:         page.Page,
			Limit:        page.Limit,
			TotalPages:   page.TotalPages,
			TotalRecords: page.TotalRecords,
		},
	}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookDetailOutput, error) {
	detail, err := s.services.Book.GetBook(ctx, input.ISBN)
	if err != nil {
		return nil, err
	}

	return &BookDetailOutput{
		Body: BookDetailResponse{
			Book: toBookResponse(detail.Book),
			Ratings: RatingSummaryResponse{
				Counts:         countsByStar(rating.SnapshotOf(detail.Book.Ratings)),
				Total:          detail.Total,
				Average:        detail.Average,
				AverageDisplay: detail.AverageDisplay,
				Breakdown:      toBreakdown(detail.Breakdown),
			},
		},
	}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.services.Book.CreateBook(ctx, domain.NewBook{
		ID:            input.Body.ID,
		Title:         input.Body.Title,
		OriginalTitle: input.Body.OriginalTitle,
		Authors:       input.Body.Authors,
		ISBN13:        input.Body.ISBN13,
		Publication:   input.Body.Publication,
		Publisher:     input.Body.Publisher,
		Description:   input.Body.Description,
		ImageURL:      input.Body.ImageURL,
	})
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: toBookResponse(book)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *DeleteBookInput) (*MessageOutput, error) {
	if err := s.services.Book.DeleteBook(ctx, input.ISBN); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Book deleted"}}, nil
}

// === Mapping ===

func toBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:            b.ID,
		ISBN13:        b.ISBN(),
		Title:         b.Title,
		OriginalTitle: b.OriginalTitle,
		Authors:       b.Authors,
		Publication:   b.Publication,
		Average:       b.Ratings.Average,
		RatingCount:   b.Ratings.Count,
		Icons: IconsResponse{
			Large: b.Icons.Large,
			Small: b.Icons.Small,
		},
	}
}

func toBreakdown(rows []rating.StarShare) []StarShareResponse {
	out := make([]StarShareResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, StarShareResponse{
			Star:    int(row.Star),
			Count:   row.Count,
			Percent: row.Percent,
		})
	}
	return out
}

// countsByStar keys counts by star value so clients never deal with the
// zero-based array layout.
func countsByStar(s rating.Snapshot) map[string]int {
	counts := make(map[string]int, int(rating.MaxStar))
	for star := rating.MinStar; star <= rating.MaxStar; star++ {
		counts[strconv.Itoa(int(star))] = s.Count(star)
	}
	return counts
}
