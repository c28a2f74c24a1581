package cli

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelfapp/bookshelf-server/internal/catalog/catalogtest"
	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	domainerrors "github.com/bookshelfapp/bookshelf-server/internal/errors"
	"github.com/bookshelfapp/bookshelf-server/internal/rating"
)

const duneISBN = "9780441172719"

func newFakeCatalog(t *testing.T) *catalogtest.Server {
	t.Helper()
	isbn, err := domain.ParseISBN(duneISBN)
	require.NoError(t, err)
	return catalogtest.NewServer(t, domain.Book{
		ID:            7,
		ISBN13:        isbn,
		Title:         "Dune",
		OriginalTitle: "Dune",
		Authors:       "Frank Herbert",
		Publication:   1965,
		Ratings:       domain.RatingsFromStars([5]int{1, 1, 2, 5, 10}),
	})
}

// run executes bookctl against the fake and returns stdout.
func run(t *testing.T, fake *catalogtest.Server, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", "", "--catalog-url", fake.URL}, args...))

	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestBooksList(t *testing.T) {
	fake := newFakeCatalog(t)

	out, err := run(t, fake, "books", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Frank Herbert")
	assert.Contains(t, out, "page 1 of 1 (1 books)")
}

func TestBooksGet_JSON(t *testing.T) {
	fake := newFakeCatalog(t)

	out, err := run(t, fake, "-o", "json", "books", "get", duneISBN)
	require.NoError(t, err)

	var got bookDetailJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, duneISBN, got.Book.ISBN13)
	assert.Equal(t, 19, got.Ratings.Total)
	assert.Equal(t, "4.2", got.Ratings.AverageDisplay)
	assert.Equal(t, 10, got.Ratings.Counts["5"])
}

func TestBooksGet_InvalidISBN(t *testing.T) {
	fake := newFakeCatalog(t)

	_, err := run(t, fake, "books", "get", "12345")

	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestBooksCreateAndDelete(t *testing.T) {
	fake := newFakeCatalog(t)

	out, err := run(t, fake, "books", "create",
		"--id", "9",
		"--title", "Good Omens",
		"--authors", "Terry Pratchett, Neil Gaiman",
		"--isbn13", "9780060853983",
		"--publication", "1990",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `Created "Good Omens" (9780060853983)`)

	_, ok := fake.Book("9780060853983")
	require.True(t, ok)

	out, err = run(t, fake, "books", "delete", "9780060853983")
	require.NoError(t, err)
	assert.Contains(t, out, "Book deleted")

	_, ok = fake.Book("9780060853983")
	assert.False(t, ok)
}

func TestBooksCreate_Validation(t *testing.T) {
	fake := newFakeCatalog(t)

	_, err := run(t, fake, "books", "create", "--id", "9", "--title", "Untitled")

	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestRatingsSet(t *testing.T) {
	fake := newFakeCatalog(t)

	out, err := run(t, fake, "ratings", "set", duneISBN, "--star5", "12", "--star1", "0")

	require.NoError(t, err)
	assert.Contains(t, out, rating.MsgSubmitted)
	assert.Contains(t, out, "20 ratings")

	writes := fake.RatingWrites()
	require.Len(t, writes, 1)
	assert.Equal(t, [5]int{0, 1, 2, 5, 12}, writes[0].Counts)
}

func TestRatingsSet_IgnoresInvalidInput(t *testing.T) {
	fake := newFakeCatalog(t)

	out, err := run(t, fake, "ratings", "set", duneISBN, "--star3", "lots")

	require.NoError(t, err)
	assert.Empty(t, fake.RatingWrites(), "nothing changed, nothing written")
	assert.Contains(t, out, "19 ratings")
}

func TestRatingsSet_FailureRollsBack(t *testing.T) {
	fake := newFakeCatalog(t)
	fake.FailRatingWrites(1)

	out, err := run(t, fake, "ratings", "set", duneISBN, "--star2", "4")

	assert.ErrorIs(t, err, domainerrors.ErrUpstream)
	assert.Contains(t, out, rating.MsgSubmitFailed)
	assert.Contains(t, out, "19 ratings")

	book, ok := fake.Book(duneISBN)
	require.True(t, ok)
	assert.Equal(t, 1, book.Ratings.Rating2)
}

func TestRatingsBump(t *testing.T) {
	fake := newFakeCatalog(t)

	_, err := run(t, fake, "ratings", "bump", duneISBN, "4")
	require.NoError(t, err)
	_, err = run(t, fake, "ratings", "bump", duneISBN, "1", "--down")
	require.NoError(t, err)

	writes := fake.RatingWrites()
	require.Len(t, writes, 2)
	assert.Equal(t, [5]int{1, 1, 2, 6, 10}, writes[0].Counts)
	assert.Equal(t, [5]int{0, 1, 2, 6, 10}, writes[1].Counts)
}

func TestRatingsBump_InvalidStar(t *testing.T) {
	fake := newFakeCatalog(t)

	_, err := run(t, fake, "ratings", "bump", duneISBN, "6")

	assert.ErrorIs(t, err, rating.ErrInvalidStar)
	assert.Empty(t, fake.RatingWrites())
}

func TestRoot_RequiresCatalogURL(t *testing.T) {
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", "", "books", "list"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Book API configured")
}

func TestRoot_RejectsUnknownOutput(t *testing.T) {
	fake := newFakeCatalog(t)

	_, err := run(t, fake, "-o", "xml", "books", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  base_url: https://books.example.com
  timeout: 5s
  rps: 2.5
output:
  format: json
`), 0o600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "https://books.example.com", cfg.Catalog.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Catalog.Timeout)
	assert.InDelta(t, 2.5, cfg.Catalog.RPS, 0.001)
	assert.Equal(t, formatJSON, cfg.Output.Format)
	assert.Equal(t, "warn", cfg.Logging.Level, "unset keys keep their defaults")
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, formatText, cfg.Output.Format)
	assert.Empty(t, cfg.Catalog.BaseURL)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog: [unclosed"), 0o600))

	_, err := LoadConfig(path)

	assert.Error(t, err)
}
