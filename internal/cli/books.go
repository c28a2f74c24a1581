package cli

import (
	"github.com/spf13/cobra"

	"github.com/bookshelfapp/bookshelf-server/internal/domain"
	"github.com/bookshelfapp/bookshelf-server/internal/service"
)

func newBooksCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Catalog book commands",
		Long:  `List, inspect, create and delete books in the catalog.`,
	}
	cmd.AddCommand(
		newBooksListCommand(a),
		newBooksGetCommand(a),
		newBooksDeleteCommand(a),
		newBooksCreateCommand(a),
	)
	return cmd
}

func newBooksListCommand(a *app) *cobra.Command {
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.books.ListBooks(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			return a.printer.books(result)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultPageLimit, "Books per page")
	return cmd
}

func newBooksGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ISBN",
		Short: "Show a book and its rating breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.books.GetBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printer.book(detail)
		},
	}
}

func newBooksDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ISBN",
		Short: "Delete a book from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.books.DeleteBook(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printer.message("Book deleted")
		},
	}
}

func newBooksCreateCommand(a *app) *cobra.Command {
	var form domain.NewBook

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a book to the catalog",
		Long:  `Add a book to the catalog. Ratings start at zero and the placeholder cover is used unless --image-url is given.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			book, err := a.books.CreateBook(cmd.Context(), form)
			if err != nil {
				return err
			}
			return a.printer.created(book)
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.ID, "id", "", "Catalog identifier")
	f.StringVar(&form.Title, "title", "", "Title")
	f.StringVar(&form.OriginalTitle, "original-title", "", "Original title (defaults to the title)")
	f.StringVar(&form.Authors, "authors", "", "Comma-separated authors")
	f.StringVar(&form.ISBN13, "isbn13", "", "13 digit ISBN")
	f.StringVar(&form.Publication, "publication", "", "Publication year")
	f.StringVar(&form.Publisher, "publisher", "", "Publisher")
	f.StringVar(&form.Description, "description", "", "Description, HTML or plain text")
	f.StringVar(&form.ImageURL, "image-url", "", "Cover image URL")
	return cmd
}
