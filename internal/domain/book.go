// Package domain contains the core catalog entities shared by the Book API
// client, the search index and the dashboard API.
package domain

import (
	"fmt"
	"math"
	"strconv"
)

// PlaceholderIcon is used when a new book has no cover image.
const PlaceholderIcon = "/placeholder-book.jpg"

// MaxRatingCount caps a single star bucket. Five full buckets still fit in an
// int32, so totals and weighted sums never overflow.
const MaxRatingCount = math.MaxInt32 / 5

// Book is a catalog entry as stored by the remote Book API.
type Book struct {
	ID            int64   `json:"id"`
	ISBN13        int64   `json:"isbn13"`
	Authors       string  `json:"authors"`
	Publication   int     `json:"publication"` // Publication year
	OriginalTitle string  `json:"original_title"`
	Title         string  `json:"title"`
	Ratings       Ratings `json:"ratings"`
	Icons         Icons   `json:"icons"`
}

// Ratings holds the aggregate and per-star rating counts of a book.
type Ratings struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Rating1 int     `json:"rating_1"`
	Rating2 int     `json:"rating_2"`
	Rating3 int     `json:"rating_3"`
	Rating4 int     `json:"rating_4"`
	Rating5 int     `json:"rating_5"`
}

// Icons holds cover image URLs.
type Icons struct {
	Large string `json:"large"`
	Small string `json:"small"`
}

// ISBN returns the zero-padded 13 digit ISBN.
func (b *Book) ISBN() string {
	return FormatISBN(b.ISBN13)
}

// Validate rejects records the dashboard cannot work with.
func (b *Book) Validate() error {
	if b.ID <= 0 {
		return fmt.Errorf("book has invalid id %d", b.ID)
	}
	if b.ISBN13 < 0 {
		return fmt.Errorf("book %d has negative isbn13", b.ID)
	}
	for star, n := range b.Ratings.Stars() {
		if n < 0 {
			return fmt.Errorf("book %d has negative %d-star count %d", b.ID, star+1, n)
		}
		if n > MaxRatingCount {
			return fmt.Errorf("book %d has %d-star count %d above %d", b.ID, star+1, n, MaxRatingCount)
		}
	}
	return nil
}

// Stars returns the five per-star counts, index 0 holding 1-star ratings.
func (r Ratings) Stars() [5]int {
	return [5]int{r.Rating1, r.Rating2, r.Rating3, r.Rating4, r.Rating5}
}

// RatingsFromStars builds Ratings from per-star counts, deriving Count and Average.
func RatingsFromStars(stars [5]int) Ratings {
	r := Ratings{
		Rating1: stars[0],
		Rating2: stars[1],
		Rating3: stars[2],
		Rating4: stars[3],
		Rating5: stars[4],
	}
	weighted := 0
	for i, n := range stars {
		r.Count += n
		weighted += (i + 1) * n
	}
	if r.Count > 0 {
		r.Average = float64(weighted) / float64(r.Count)
	}
	return r
}

// FormatISBN renders an ISBN-13 stored as a number.
func FormatISBN(isbn int64) string {
	return fmt.Sprintf("%013d", isbn)
}

// ParseISBN parses a 13 digit ISBN into its numeric form.
func ParseISBN(s string) (int64, error) {
	if len(s) != 13 {
		return 0, fmt.Errorf("isbn %q must be exactly 13 digits", s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("isbn %q must be exactly 13 digits", s)
	}
	return n, nil
}
