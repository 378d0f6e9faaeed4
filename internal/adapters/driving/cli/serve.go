package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/api"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/watch"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. Tasks stream their events as server-sent events.

Endpoints:
  POST   /api/tasks            submit a task, stream events
  GET    /api/documents        list documents
  POST   /api/documents        index a document
  GET    /api/documents/{id}   get a document
  DELETE /api/documents/{id}   remove a document
  GET    /api/search?q=&k=&doc= search the index
  GET    /health               liveness

Use --preload to index a directory at start, and --watch to keep the index
in sync with it while serving.

Examples:
  newsdesk serve --addr :8080
  newsdesk serve --preload ./archive --watch`,
	Args:        cobra.NoArgs,
	Annotations: engineAnnotation,
	RunE:        runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "re-index files under --preload as they change")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if indexService == nil || taskService == nil {
		return errors.New("engine services not configured")
	}
	if serveWatch && preloadDir == "" {
		return errors.New("--watch requires --preload")
	}

	logger.SetTimestamps(true)
	server := api.NewServer(indexService, taskService)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		fmt.Fprintf(cmd.OutOrStdout(), "Newsdesk API listening on %s\n", serveAddr)
		return server.Run(ctx, serveAddr)
	})
	if serveWatch {
		g.Go(func() error {
			return watchPreload(ctx, preloadDir)
		})
	}
	return g.Wait()
}

func watchPreload(ctx context.Context, dir string) error {
	if ingester == nil {
		return errors.New("ingester not configured")
	}
	w := watch.NewWatcher(ingester, dir,
		watch.WithSourceKind(domain.SourcePreloaded),
		watch.WithChangeHandler(func(change watch.Change, _ *domain.DocumentRecord, err error) {
			if err != nil {
				logger.Warn("%s %s: %v", change.Type, change.Path, err)
				return
			}
			logger.Info("%s %s", change.Type, change.Path)
		}),
	)
	return w.Run(ctx)
}
