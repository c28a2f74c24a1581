// Package rating implements local editing of a book's per-star rating counts
// and their reconciliation with the remote Book API.
//
// An EditBuffer holds the working copy and the last confirmed counts. A
// Reconciler owns one buffer and drives submit, rollback and undo against a
// Store, allowing at most one write in flight.
package rating

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
)

// Star identifies a rating bucket, 1 through 5.
type Star int

// Star bounds.
const (
	MinStar Star = 1
	MaxStar Star = 5
)

// MaxCount is the largest count a bucket may hold.
const MaxCount = domain.MaxRatingCount

// Valid reports whether s is within 1..5.
func (s Star) Valid() bool {
	return s >= MinStar && s <= MaxStar
}

// ParseStar parses a star number from a path segment or CLI argument.
func ParseStar(raw string) (Star, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !Star(n).Valid() {
		return 0, invalidStar(raw)
	}
	return Star(n), nil
}

// Snapshot is the five star-bucket counts at a point in time.
// Index 0 holds 1-star ratings. Snapshots are values; == compares all buckets.
type Snapshot [5]int

// SnapshotOf builds a snapshot from a book's ratings.
func SnapshotOf(r domain.Ratings) Snapshot {
	return Snapshot(r.Stars())
}

// Count returns the count for a star. Out-of-range stars count as zero.
func (s Snapshot) Count(star Star) int {
	if !star.Valid() {
		return 0
	}
	return s[star-1]
}

// Total is the number of ratings across all buckets.
func (s Snapshot) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// Average is the star-weighted mean, 0 when there are no ratings.
func (s Snapshot) Average() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	var weighted int64
	for i, n := range s {
		weighted += int64(i+1) * int64(n)
	}
	return float64(weighted) / float64(total)
}

// AverageDisplay renders the average with one decimal, or "0" with no ratings.
// Halves round up, so 4.25 displays as "4.3".
func (s Snapshot) AverageDisplay() string {
	if s.Total() == 0 {
		return "0"
	}
	return strconv.FormatFloat(roundTenths(s.Average()), 'f', 1, 64)
}

// roundTenths rounds a non-negative value half up to one decimal. The
// epsilon absorbs binary representation error, so 4.25 stays a tie.
func roundTenths(v float64) float64 {
	return math.Floor(v*10+0.5+1e-9) / 10
}

// Percent is the share of ratings in a bucket, 0..100.
func (s Snapshot) Percent(star Star) float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Count(star)) / float64(total) * 100
}

// Ratings converts the snapshot back into the catalog representation.
func (s Snapshot) Ratings() domain.Ratings {
	return domain.RatingsFromStars(s)
}

// String renders the snapshot as "5:10 4:5 3:2 2:1 1:1".
func (s Snapshot) String() string {
	var b strings.Builder
	for star := MaxStar; star >= MinStar; star-- {
		if star != MaxStar {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d:%d", star, s.Count(star))
	}
	return b.String()
}
