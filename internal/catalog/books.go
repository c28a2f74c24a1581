package catalog

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	"github.com/bookshelfapp/bookshelf-server/internal/validation"
)

// Page is one page of the catalog listing.
type Page struct {
	Books        []domain.Book
	TotalRecords int
	Limit        int
	Offset       int
	// Paginated is false when the API omitted pagination metadata.
	Paginated bool
}

// GetBookByISBN fetches a single book. Returns ErrNotFound for unknown ISBNs.
func (c *Client) GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	if !validation.IsISBN13(isbn) {
		return nil, wrapError("getBook", isbn, ErrInvalidISBN)
	}

	body, err := c.doRequest(ctx, "getBook", http.MethodGet, "/book/isbn/"+url.PathEscape(isbn), nil, nil)
	if err != nil {
		return nil, wrapError("getBook", isbn, err)
	}

	var resp struct {
		Entry *domain.Book `json:"entry"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("getBook", isbn, fmt.Errorf("parse response: %w", err))
	}
	if resp.Entry == nil {
		return nil, wrapError("getBook", isbn, ErrNotFound)
	}
	if err := resp.Entry.Validate(); err != nil {
		return nil, wrapError("getBook", isbn, fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	return resp.Entry, nil
}

// ListBooks fetches one page of the catalog. Malformed entries are skipped.
func (c *Client) ListBooks(ctx context.Context, limit, offset int) (*Page, error) {
	if limit <= 0 || offset < 0 {
		return nil, wrapError("listBooks", "", ErrBadRequest)
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	body, err := c.doRequest(ctx, "listBooks", http.MethodGet, "/book/all", query, nil)
	if err != nil {
		return nil, wrapError("listBooks", "", err)
	}

	var resp struct {
		Entries    []domain.Book `json:"entries"`
		Pagination *struct {
			TotalRecords int `json:"totalRecords"`
			Limit        int `json:"limit"`
			Offset       int `json:"offset"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("listBooks", "", fmt.Errorf("parse response: %w", err))
	}

	page := &Page{
		Books:  make([]domain.Book, 0, len(resp.Entries)),
		Limit:  limit,
		Offset: offset,
	}
	for i := range resp.Entries {
		b := &resp.Entries[i]
		if err := b.Validate(); err != nil {
			c.logger.Warn("skipping malformed book record", "error", err)
			continue
		}
		page.Books = append(page.Books, *b)
	}
	if resp.Pagination != nil {
		page.Paginated = true
		page.TotalRecords = resp.Pagination.TotalRecords
	} else {
		// Malformed entries still count toward the total.
		page.TotalRecords = len(resp.Entries)
	}

	return page, nil
}

// UpdateRatings writes all five star counts of a book in one request.
// counts[0] holds 1-star ratings. It waits as long as ctx allows.
func (c *Client) UpdateRatings(ctx context.Context, bookID int64, counts [5]int) error {
	key := strconv.FormatInt(bookID, 10)
	for _, n := range counts {
		if n < 0 {
			return wrapError("updateRatings", key, ErrBadRequest)
		}
	}

	payload := struct {
		ID          int64 `json:"id"`
		Rating1Star int   `json:"rating_1_star"`
		Rating2Star int   `json:"rating_2_star"`
		Rating3Star int   `json:"rating_3_star"`
		Rating4Star int   `json:"rating_4_star"`
		Rating5Star int   `json:"rating_5_star"`
	}{bookID, counts[0], counts[1], counts[2], counts[3], counts[4]}

	body, err := json.Marshal(payload)
	if err != nil {
		return wrapError("updateRatings", key, fmt.Errorf("encode request: %w", err))
	}

	// No client deadline on writes.
	if _, err := c.send(ctx, "updateRatings", http.MethodPatch, "/book/rating", nil, body); err != nil {
		return wrapError("updateRatings", key, err)
	}
	return nil
}

// DeleteBook removes a book by ISBN.
func (c *Client) DeleteBook(ctx context.Context, isbn string) error {
	if !validation.IsISBN13(isbn) {
		return wrapError("deleteBook", isbn, ErrInvalidISBN)
	}
	if _, err := c.doRequest(ctx, "deleteBook", http.MethodDelete, "/book/isbn/"+url.PathEscape(isbn), nil, nil); err != nil {
		return wrapError("deleteBook", isbn, err)
	}
	return nil
}

// CreateBook submits a new catalog entry. The API may echo the stored entry;
// when it does not, the returned book is built from the payload.
func (c *Client) CreateBook(ctx context.Context, p domain.CreateBookPayload) (*domain.Book, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, wrapError("createBook", p.ISBN13, fmt.Errorf("encode request: %w", err))
	}

	respBody, err := c.doRequest(ctx, "createBook", http.MethodPost, "/book", nil, body)
	if err != nil {
		return nil, wrapError("createBook", p.ISBN13, err)
	}

	var resp struct {
		Entry *domain.Book `json:"entry"`
	}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &resp); err != nil {
			c.logger.Debug("create response was not a book entry", "error", err)
		}
	}
	if resp.Entry != nil && resp.Entry.Validate() == nil {
		return resp.Entry, nil
	}
	return bookFromPayload(p), nil
}

// Ping checks the Book API is reachable with the smallest listing request.
func (c *Client) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")
	query.Set("offset", "0")
	if _, err := c.doRequest(ctx, "ping", http.MethodGet, "/book/all", query, nil); err != nil {
		return wrapError("ping", "", err)
	}
	return nil
}

func bookFromPayload(p domain.CreateBookPayload) *domain.Book {
	b := &domain.Book{
		Authors:       p.Authors,
		OriginalTitle: p.OriginalTitle,
		Title:         p.Title,
		Ratings:       p.Ratings,
		Icons:         p.Icons,
	}
	b.ID, _ = strconv.ParseInt(p.ID, 10, 64)
	b.ISBN13, _ = domain.ParseISBN(p.ISBN13)
	b.Publication, _ = strconv.Atoi(p.Publication)
	return b
}
