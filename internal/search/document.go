// Package search provides full-text search over the catalog using an
// in-memory Bleve index that is refreshed from the Book API.
package search

import (
	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	"github.com/bookshelfapp/bookshelf-server/internal/normalize"
)

// BookDocument is the indexed form of a catalog book. The document ID is the
// 13 digit ISBN.
type BookDocument struct {
	ISBN          string
	Title         string
	OriginalTitle string
	Authors       string // folded for accent-insensitive matching
	Publication   int
	Average       float64
	RatingCount   int
}

// NewBookDocument builds the index document for a book.
func NewBookDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		ISBN:          b.ISBN(),
		Title:         b.Title,
		OriginalTitle: b.OriginalTitle,
		Authors:       normalize.Fold(b.Authors),
		Publication:   b.Publication,
		Average:       b.Ratings.Average,
		RatingCount:   b.Ratings.Count,
	}
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"isbn":         d.ISBN,
		"title":        d.Title,
		"title_sort":   normalize.Fold(d.Title),
		"authors":      d.Authors,
		"average":      d.Average,
		"rating_count": d.RatingCount,
	}
	if d.OriginalTitle != "" && d.OriginalTitle != d.Title {
		m["original_title"] = d.OriginalTitle
	}
	if d.Publication != 0 {
		m["publication"] = d.Publication
	}
	return m
}
