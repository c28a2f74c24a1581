package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bookshelfapp/bookshelf-server/internal/service"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search books",
		Description: "Searches the local catalog index by title, author, ISBN, minimum rating or publication year",
		Tags:        []string{"Search"},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the catalog.
// The form rules are enforced by the search service.
type SearchInput struct {
	Query    string `query:"query" doc:"Search text, at least 2 characters"`
	Category string `query:"category" doc:"One of title, author, isbn, rating, year (default title)"`
	Limit    int    `query:"limit" doc:"Max results (default 20, max 100)"`
	Offset   int    `query:"offset" doc:"Pagination offset (default 0)"`
}

// SearchResponse contains search results.
type SearchResponse struct {
	Query    string         `json:"query" doc:"Original search query"`
	Category string         `json:"category" doc:"Category searched"`
	Total    uint64         `json:"total" doc:"Total matches"`
	TookMs   int64          `json:"took_ms" doc:"Search duration in milliseconds"`
	Books    []BookResponse `json:"books" doc:"Matching books"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	result, err := s.services.Search.Search(ctx, service.SearchForm{
		Query:    input.Query,
		Category: input.Category,
		Limit:    input.Limit,
		Offset:   input.Offset,
	})
	if err != nil {
		return nil, err
	}

	books := make([]BookResponse, 0, len(result.Books))
	for i := range result.Books {
		books = append(books, toBookResponse(&result.Books[i]))
	}

	return &SearchOutput{
		Body: SearchResponse{
			Query:    result.Query,
			Category: string(result.Category),
			Total:    result.Total,
			TookMs:   result.TookMs,
			Books:    books,
		},
	}, nil
}
