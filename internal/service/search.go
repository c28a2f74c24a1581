package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	domainerrors "github.com/bookshelfapp/bookshelf-server/internal/errors"
	"github.com/bookshelfapp/bookshelf-server/internal/search"
	"github.com/bookshelfapp/bookshelf-server/internal/validation"
)

// SearchForm is the dashboard search form.
type SearchForm struct {
	Query    string `json:"query" validate:"notblank,notrimspace,min=2"`
	Category string `json:"category" validate:"omitempty,oneof=title author isbn rating year"`
	Limit    int    `json:"limit" validate:"gte=0,lte=100"`
	Offset   int    `json:"offset" validate:"gte=0"`
}

// SearchService answers catalog searches from the local index.
type SearchService struct {
	index     *search.SearchIndex
	validator *validation.Validator
	logger    *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:     index,
		validator: validation.New(),
		logger:    logger,
	}
}

// Search validates the form and runs the query.
func (s *SearchService) Search(ctx context.Context, form SearchForm) (*search.SearchResult, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}

	category := search.Category(form.Category)
	if category == "" {
		category = search.CategoryTitle
	}

	result, err := s.index.Search(ctx, search.SearchParams{
		Query:    form.Query,
		Category: category,
		Limit:    form.Limit,
		Offset:   form.Offset,
	})
	if err != nil {
		if errors.Is(err, search.ErrInvalidQuery) {
			msg := strings.TrimPrefix(err.Error(), search.ErrInvalidQuery.Error()+": ")
			return nil, domainerrors.Validation(msg).WithCause(err)
		}
		return nil, domainerrors.Internal("Search failed").WithCause(err)
	}

	s.logger.Debug("search",
		"query", form.Query,
		"category", category,
		"total", result.Total,
		"took_ms", result.TookMs)
	return result, nil
}
