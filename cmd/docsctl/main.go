// Package main provides docsctl, an operator CLI for the docsift document
// store. It talks to Cloud Storage and Vertex AI Search directly with the
// same configuration as the API server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docsift/docsift/engine/blob"
	"github.com/docsift/docsift/engine/catalog"
	"github.com/docsift/docsift/engine/config"
	"github.com/docsift/docsift/engine/domain"
	"github.com/docsift/docsift/engine/events"
	"github.com/docsift/docsift/engine/indexing"
	"github.com/docsift/docsift/engine/ingest"
	"github.com/docsift/docsift/engine/search"
	"github.com/docsift/docsift/pkg/gcp"
)

type documentLister interface {
	List(ctx context.Context) ([]domain.IndexedDocument, error)
}

type objectLister interface {
	List(ctx context.Context) ([]domain.StoredObject, error)
}

type searcher interface {
	Search(ctx context.Context, c domain.SearchConfiguration) (any, error)
	Defaults() domain.SearchConfiguration
}

type ingester interface {
	Run(ctx context.Context, files []domain.UploadedFile) (domain.UploadResponse, error)
}

type importer interface {
	ImportMany(ctx context.Context, uris []string) []domain.IndexOperation
}

// app holds the services the commands run against. Nil services are built
// from the environment on first use.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	catalog documentLister
	objects objectLister
	search  searcher
	ingest  ingester
	indexer importer

	closers []func() error
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	a := &app{}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:          "docsctl",
		Short:        "Manage documents indexed by docsift",
		SilenceUsage: true,
		Long: `docsctl uploads PDFs, triggers indexing, lists documents and runs searches
against the configured Cloud Storage bucket and Vertex AI Search data store.

Environment variables:
  PROJECT_ID     Google Cloud project (required)
  LOCATION       Data store location, e.g. global or eu (required)
  DATASTORE_ID   Vertex AI Search data store (required)
  BUCKET_NAME    Cloud Storage bucket for uploads (required for upload/objects)
  SUMMARY_MODE   structured (default) or raw
  NATS_URL       NATS server for upload events (optional)`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			if a.logger == nil {
				a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			}
			if a.cfg == nil {
				cfg, err := config.FromLookup(os.LookupEnv)
				if err != nil {
					return err
				}
				a.cfg = cfg
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newDocumentsCmd(a),
		newObjectsCmd(a),
		newSearchCmd(a),
		newUploadCmd(a),
		newImportCmd(a),
		newEventsCmd(a),
	)
	return root
}

// connect builds any service not already set.
func (a *app) connect(ctx context.Context) error {
	if a.catalog != nil && a.objects != nil && a.search != nil && a.ingest != nil && a.indexer != nil {
		return nil
	}
	dc, err := gcp.NewDiscoveryClient(ctx, a.cfg.DiscoveryEndpoint())
	if err != nil {
		return err
	}
	a.closers = append(a.closers, dc.Close)
	sc, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, sc.Close)

	var publisher events.Publisher = events.Nop{}
	if a.cfg.NATSURL != "" {
		nc, err := events.Connect(a.cfg.NATSURL, a.logger)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		a.closers = append(a.closers, func() error { return nc.Drain() })
		publisher = events.NewNATSPublisher(nc, a.logger)
	}

	uploader := blob.New(sc, a.cfg, nil, a.logger)
	indexer := indexing.New(dc, a.cfg, nil, a.logger)
	a.catalog = catalog.New(dc, a.cfg, a.logger)
	a.objects = uploader
	a.search = search.New(dc, a.cfg, nil, a.logger)
	a.indexer = indexer
	a.ingest = ingest.New(uploader, indexer, publisher, a.logger)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// out is where command results go.
func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
