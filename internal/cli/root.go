// Package cli implements bookctl, a command-line client for the remote Book API.
// It talks to the Book API directly and runs rating edits through the same
// reconciler the server uses.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bookshelfapp/bookshelf-server/internal/catalog"
	"github.com/bookshelfapp/bookshelf-server/internal/logger"
	"github.com/bookshelfapp/bookshelf-server/internal/search"
	"github.com/bookshelfapp/bookshelf-server/internal/service"
)

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	cfg     *Config
	client  *catalog.Client
	books   *service.BookService
	logger  *slog.Logger
	printer *printer
}

type rootOptions struct {
	configPath string
	catalogURL string
	output     string
	logLevel   string
}

// NewRootCommand builds the bookctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:           "bookctl",
		Short:         "Manage the book catalog from the command line",
		Long:          `bookctl lists, creates and deletes catalog books and edits their star ratings through the Book API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, opts)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}

	defaultPath, _ := DefaultConfigPath()
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultPath, "Path to the bookctl YAML config")
	root.PersistentFlags().StringVar(&opts.catalogURL, "catalog-url", "", "Book API base URL (overrides the config file)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output format: text or json")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newBooksCommand(a), newRatingsCommand(a))
	return root
}

// Execute runs bookctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) init(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.catalogURL != "" {
		cfg.Catalog.BaseURL = opts.catalogURL
	}
	if opts.output != "" {
		cfg.Output.Format = opts.output
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	if cfg.Catalog.BaseURL == "" {
		return fmt.Errorf("no Book API configured: pass --catalog-url or set catalog.base_url in %s", opts.configPath)
	}
	if cfg.Output.Format != formatText && cfg.Output.Format != formatJSON {
		return fmt.Errorf("unknown output format %q: use text or json", cfg.Output.Format)
	}

	log := logger.New(logger.Config{
		Writer: cmd.ErrOrStderr(),
		Format: "pretty",
		Level:  logger.ParseLevel(cfg.Logging.Level),
	})

	// The CLI has no dashboard to refresh; the index only satisfies the book service.
	index, err := search.NewSearchIndex(search.Options{Logger: log.Component("search")})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = log.Logger
	a.client = catalog.New(catalog.Options{
		BaseURL:   cfg.Catalog.BaseURL,
		Timeout:   cfg.Catalog.Timeout,
		RPS:       cfg.Catalog.RPS,
		UserAgent: cfg.Catalog.UserAgent,
	}, log.Component("catalog"))
	a.books = service.NewBookService(a.client, index, nil, service.NewNoopEmitter(), log.Logger)
	a.printer = &printer{w: cmd.OutOrStdout(), json: cfg.Output.Format == formatJSON}
	return nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
}

