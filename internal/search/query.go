package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	"github.com/bookshelfapp/bookshelf-server/internal/normalize"
)

// Category selects which book attribute a query matches.
type Category string

// Search categories offered by the dashboard search form.
const (
	CategoryTitle  Category = "title"
	CategoryAuthor Category = "author"
	CategoryISBN   Category = "isbn"
	CategoryRating Category = "rating"
	CategoryYear   Category = "year"
)

// ErrInvalidQuery is returned when the query text does not fit the category.
var ErrInvalidQuery = errors.New("search: invalid query")

// Default and maximum result sizes.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// SearchParams configures a search query.
type SearchParams struct {
	Query    string
	Category Category
	Limit    int
	Offset   int
}

// SearchResult holds the matching books in rank order.
type SearchResult struct {
	Query    string
	Category Category
	Total    uint64
	TookMs   int64
	Books    []domain.Book
}

// Search executes a search query.
//
//   - title: full-text match on title and original title, with a prefix fallback
//   - author: full-text match on accent-folded author names
//   - isbn: ISBN prefix
//   - rating: books whose average is at least the given value, best first
//   - year: books published in the given year
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Category == "" {
		params.Category = CategoryTitle
	}
	switch {
	case params.Limit <= 0:
		params.Limit = DefaultLimit
	case params.Limit > MaxLimit:
		params.Limit = MaxLimit
	}
	params.Offset = max(params.Offset, 0)

	q, sortBy, err := buildSearchQuery(params)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(q, params.Limit, params.Offset, false)
	req.SortBy(sortBy)

	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:    params.Query,
		Category: params.Category,
		Total:    res.Total,
		TookMs:   res.Took.Milliseconds(),
		Books:    make([]domain.Book, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		if b, ok := s.books[hit.ID]; ok {
			result.Books = append(result.Books, b)
		}
	}
	return result, nil
}

// buildSearchQuery constructs the Bleve query and sort order for a category.
func buildSearchQuery(params SearchParams) (query.Query, []string, error) {
	text := strings.TrimSpace(params.Query)
	if text == "" {
		return nil, nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}

	switch params.Category {
	case CategoryTitle:
		titleMatch := bleve.NewMatchQuery(text)
		titleMatch.SetField("title")
		titleMatch.SetBoost(3.0)

		origMatch := bleve.NewMatchQuery(text)
		origMatch.SetField("original_title")
		origMatch.SetBoost(1.5)

		// Prefix on the folded sort key for as-you-type matches
		prefix := bleve.NewPrefixQuery(normalize.Fold(text))
		prefix.SetField("title_sort")
		prefix.SetBoost(0.5)

		return bleve.NewDisjunctionQuery(titleMatch, origMatch, prefix), []string{"-_score", "title_sort"}, nil

	case CategoryAuthor:
		authorMatch := bleve.NewMatchQuery(normalize.Fold(text))
		authorMatch.SetField("authors")
		authorMatch.SetOperator(query.MatchQueryOperatorAnd)
		return authorMatch, []string{"-_score", "title_sort"}, nil

	case CategoryISBN:
		if strings.IndexFunc(text, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return nil, nil, fmt.Errorf("%w: isbn search takes digits only", ErrInvalidQuery)
		}
		prefix := bleve.NewPrefixQuery(text)
		prefix.SetField("isbn")
		return prefix, []string{"isbn"}, nil

	case CategoryRating:
		minRating, err := strconv.ParseFloat(text, 64)
		if err != nil || minRating < 0 || minRating > 5 {
			return nil, nil, fmt.Errorf("%w: rating must be a number between 0 and 5", ErrInvalidQuery)
		}
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(&minRating, nil, &inclusive, nil)
		rq.SetField("average")
		return rq, []string{"-average", "-rating_count", "title_sort"}, nil

	case CategoryYear:
		year, err := strconv.Atoi(text)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: year must be a whole number", ErrInvalidQuery)
		}
		lo, hi := float64(year), float64(year+1)
		rq := bleve.NewNumericRangeQuery(&lo, &hi)
		rq.SetField("publication")
		return rq, []string{"title_sort"}, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown category %q", ErrInvalidQuery, params.Category)
	}
}
