package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bookshelfapp/bookshelf-server/internal/config"
	"github.com/bookshelfapp/bookshelf-server/internal/logger"
	"github.com/bookshelfapp/bookshelf-server/internal/service"
)

// CatalogIndexerJob runs the periodic catalog re-index.
type CatalogIndexerJob struct {
	*service.CatalogIndexer
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *CatalogIndexerJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideCatalogIndexerJob provides the catalog indexer and starts it in the background.
func ProvideCatalogIndexerJob(i do.Injector) (*CatalogIndexerJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	catalogHandle := do.MustInvoke[*CatalogClientHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	indexer := service.NewCatalogIndexer(
		catalogHandle.Client,
		indexHandle.SearchIndex,
		sseHandle.Manager,
		cfg.Search.PageSize,
		log.Component("indexer"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go indexer.Run(ctx, cfg.Search.RefreshInterval)

	log.Info("Catalog indexer started", "interval", cfg.Search.RefreshInterval)

	return &CatalogIndexerJob{CatalogIndexer: indexer, cancel: cancel}, nil
}

// SessionSweeperJob closes idle rating sessions.
type SessionSweeperJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionSweeperJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionSweeperJob provides the periodic idle session sweep.
func ProvideSessionSweeperJob(i do.Injector) (*SessionSweeperJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	ratingHandle := do.MustInvoke[*RatingServiceHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	go ratingHandle.RunSweeper(ctx, cfg.Sessions.SweepInterval, cfg.Sessions.IdleTTL)

	log.Info("Session sweeper started",
		"interval", cfg.Sessions.SweepInterval,
		"idle_ttl", cfg.Sessions.IdleTTL,
	)

	return &SessionSweeperJob{cancel: cancel}, nil
}
