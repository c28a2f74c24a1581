package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bookshelfapp/bookshelf-server/internal/catalog"
	domainerrors "github.com/bookshelfapp/bookshelf-server/internal/errors"
	"github.com/bookshelfapp/bookshelf-server/internal/rating"
)

func newRatingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratings",
		Short: "Edit a book's star ratings",
		Long:  `Edit the per-star rating counts of a book. Changes are written to the Book API in one update.`,
	}
	cmd.AddCommand(newRatingsSetCommand(a), newRatingsBumpCommand(a))
	return cmd
}

// edit loads the book, applies the edits to a fresh reconciler and submits.
func (a *app) edit(ctx context.Context, isbn string, apply func(*rating.Reconciler) error) error {
	detail, err := a.books.GetBook(ctx, isbn)
	if err != nil {
		return err
	}
	book := detail.Book

	r := rating.NewReconciler(book.ID, rating.SnapshotOf(book.Ratings),
		catalog.NewRatingStore(a.client), rating.WithLogger(a.logger))
	defer r.Close()

	if err := apply(r); err != nil {
		return err
	}

	v, err := r.Submit(ctx)
	if domainerrors.Is(err, rating.ErrNoChanges) {
		return a.printer.ratings(book, r.View())
	}
	if err != nil {
		return err
	}
	if err := a.printer.ratings(book, v); err != nil {
		return err
	}
	if v.Notice != nil && v.Notice.Kind == rating.NoticeFailure {
		return domainerrors.Upstream(v.Notice.Message)
	}
	return nil
}

func newRatingsSetCommand(a *app) *cobra.Command {
	var counts [5]string

	cmd := &cobra.Command{
		Use:   "set ISBN",
		Short: "Set star counts",
		Long: `Set one or more star counts and submit them together.

  bookctl ratings set 9780441172719 --star5 12 --star1 0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd.Context(), args[0], func(r *rating.Reconciler) error {
				for star := rating.MinStar; star <= rating.MaxStar; star++ {
					if !cmd.Flags().Changed(starFlag(star)) {
						continue
					}
					if _, err := r.SetCount(star, counts[star-1]); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	for star := rating.MinStar; star <= rating.MaxStar; star++ {
		cmd.Flags().StringVar(&counts[star-1], starFlag(star), "", "Count of "+strconv.Itoa(int(star))+"-star ratings")
	}
	return cmd
}

func newRatingsBumpCommand(a *app) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "bump ISBN STAR",
		Short: "Add or remove one rating",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			star, err := rating.ParseStar(args[1])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), args[0], func(r *rating.Reconciler) error {
				if down {
					_, err := r.Decrement(star)
					return err
				}
				_, err := r.Increment(star)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "Remove a rating instead of adding one")
	return cmd
}

func starFlag(star rating.Star) string {
	return "star" + strconv.Itoa(int(star))
}

