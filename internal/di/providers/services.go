package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookshelfapp/bookshelf-server/internal/logger"
	"github.com/bookshelfapp/bookshelf-server/internal/service"
)

// RatingServiceHandle wraps the rating service so open sessions are closed on shutdown.
type RatingServiceHandle struct {
	*service.RatingService
}

// Shutdown implements do.Shutdownable.
func (h *RatingServiceHandle) Shutdown() error {
	h.RatingService.Shutdown()
	return nil
}

// ProvideRatingService provides the rating session service.
func ProvideRatingService(i do.Injector) (*RatingServiceHandle, error) {
	catalogHandle := do.MustInvoke[*CatalogClientHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewRatingService(catalogHandle.Client, indexHandle.SearchIndex, sseHandle.Manager, log.Logger)
	return &RatingServiceHandle{RatingService: svc}, nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	catalogHandle := do.MustInvoke[*CatalogClientHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	ratingHandle := do.MustInvoke[*RatingServiceHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(
		catalogHandle.Client,
		indexHandle.SearchIndex,
		ratingHandle.RatingService,
		sseHandle.Manager,
		log.Logger,
	), nil
}

// ProvideAccountService provides the account service.
func ProvideAccountService(i do.Injector) (*service.AccountService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewAccountService(log.Logger), nil
}
