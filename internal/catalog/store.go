package catalog

import (
	"context"

	"github.com/bookshelfapp/bookshelf-server/internal/rating"
)

// RatingUpdater is the part of the client the rating flow writes through.
type RatingUpdater interface {
	UpdateRatings(ctx context.Context, bookID int64, counts [5]int) error
}

// RatingStore adapts the client to rating.Store.
type RatingStore struct {
	client RatingUpdater
}

// NewRatingStore returns a rating.Store backed by the Book API.
func NewRatingStore(c RatingUpdater) *RatingStore {
	return &RatingStore{client: c}
}

// UpdateRatingCounts implements rating.Store.
func (s *RatingStore) UpdateRatingCounts(ctx context.Context, bookID int64, counts rating.Snapshot) error {
	return s.client.UpdateRatings(ctx, bookID, counts)
}

var (
	_ rating.Store  = (*RatingStore)(nil)
	_ RatingUpdater = (*Client)(nil)
)
