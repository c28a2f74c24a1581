package cli

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	"github.com/bookshelfapp/bookshelf-server/internal/rating"
	"github.com/bookshelfapp/bookshelf-server/internal/service"
)

const (
	formatText = "text"
	formatJSON = "json"
)

type printer struct {
	w    io.Writer
	json bool
}

type bookJSON struct {
	ID          int64   `json:"id"`
	ISBN13      string  `json:"isbn13"`
	Title       string  `json:"title"`
	Authors     string  `json:"authors"`
	Publication int     `json:"publication"`
	Average     float64 `json:"average"`
	RatingCount int     `json:"rating_count"`
}

type pageJSON struct {
	Books        []bookJSON `json:"books"`
	Page         int        `json:"page"`
	TotalPages   int        `json:"total_pages"`
	TotalRecords int        `json:"total_records"`
}

type bookDetailJSON struct {
	Book    bookJSON    `json:"book"`
	Ratings ratingsJSON `json:"ratings"`
}

type ratingsJSON struct {
	ISBN           string         `json:"isbn13"`
	Title          string         `json:"title"`
	Counts         map[string]int `json:"counts"`
	Total          int            `json:"total"`
	AverageDisplay string         `json:"average_display"`
	Notice         string         `json:"notice,omitempty"`
}

func toBookJSON(b domain.Book) bookJSON {
	return bookJSON{
		ID:          b.ID,
		ISBN13:      b.ISBN(),
		Title:       b.Title,
		Authors:     b.Authors,
		Publication: b.Publication,
		Average:     b.Ratings.Average,
		RatingCount: b.Ratings.Count,
	}
}

func (p *printer) encode(v any) error {
	if err := json.MarshalWrite(p.w, v, jsontext.WithIndent("  ")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(p.w)
	return err
}

func (p *printer) books(page *service.BookPage) error {
	if p.json {
		out := pageJSON{
			Books:        make([]bookJSON, 0, len(page.Books)),
			Page:         page.Page,
			TotalPages:   page.TotalPages,
			TotalRecords: page.TotalRecords,
		}
		for _, b := range page.Books {
			out.Books = append(out.Books, toBookJSON(b))
		}
		return p.encode(out)
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ISBN\tTITLE\tAUTHORS\tYEAR\tAVG\tRATINGS")
	for _, b := range page.Books {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%d\n",
			b.ISBN(), b.Title, b.Authors, b.Publication, b.Ratings.Average, b.Ratings.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.w, "page %d of %d (%d books)\n", page.Page, page.TotalPages, page.TotalRecords)
	return err
}

func (p *printer) book(detail *service.BookDetail) error {
	b := detail.Book
	if p.json {
		return p.encode(bookDetailJSON{
			Book:    toBookJSON(*b),
			Ratings: toRatingsJSON(b, rating.SnapshotOf(b.Ratings), detail.AverageDisplay, nil),
		})
	}

	fmt.Fprintf(p.w, "%s\n", b.Title)
	fmt.Fprintf(p.w, "  ISBN:        %s\n", b.ISBN())
	fmt.Fprintf(p.w, "  Authors:     %s\n", b.Authors)
	fmt.Fprintf(p.w, "  Publication: %d\n", b.Publication)
	return p.breakdown(detail.Breakdown, detail.Total, detail.AverageDisplay)
}

func (p *printer) created(b *domain.Book) error {
	if p.json {
		return p.encode(toBookJSON(*b))
	}
	_, err := fmt.Fprintf(p.w, "Created %q (%s)\n", b.Title, b.ISBN())
	return err
}

func (p *printer) message(msg string) error {
	if p.json {
		return p.encode(struct {
			Message string `json:"message"`
		}{msg})
	}
	_, err := fmt.Fprintln(p.w, msg)
	return err
}

func (p *printer) ratings(b *domain.Book, v rating.View) error {
	if p.json {
		return p.encode(toRatingsJSON(b, v.Counts, v.AverageDisplay, v.Notice))
	}
	if v.Notice != nil {
		fmt.Fprintln(p.w, v.Notice.Message)
	}
	fmt.Fprintf(p.w, "%s (%s)\n", b.Title, b.ISBN())
	return p.breakdown(v.Breakdown(), v.Total, v.AverageDisplay)
}

func (p *printer) breakdown(rows []rating.StarShare, total int, avg string) error {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, row := range rows {
		fmt.Fprintf(tw, "  %d star\t%d\t%.1f%%\t\n", row.Star, row.Count, row.Percent)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(p.w, "  %d ratings, average %s\n", total, avg)
	return err
}

func toRatingsJSON(b *domain.Book, counts rating.Snapshot, avg string, notice *rating.Notice) ratingsJSON {
	out := ratingsJSON{
		ISBN:           b.ISBN(),
		Title:          b.Title,
		Counts:         make(map[string]int, len(counts)),
		Total:          counts.Total(),
		AverageDisplay: avg,
	}
	for star := rating.MinStar; star <= rating.MaxStar; star++ {
		out.Counts[fmt.Sprint(int(star))] = counts.Count(star)
	}
	if notice != nil {
		out.Notice = notice.Message
	}
	return out
}
