package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/netweave/netweave/internal/server"
	"github.com/netweave/netweave/pkg/archive"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var (
		addr       string
		mongoURI   string
		database   string
		collection string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the graph view API backed by the archive",
		Long: `Serve exposes archived graph documents over HTTP: GET /graphs lists the
archive, GET /graphs/{id} returns one graph, POST /graphs publishes a
validated revision, DELETE /graphs/{id} withdraws one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			store, err := archive.Connect(ctx, archive.Config{
				URI:        mongoURI,
				Database:   database,
				Collection: collection,
			})
			if err != nil {
				printError("archive: %v", err)
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = store.Close(shutdownCtx)
			}()

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(store).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("view API listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8701", "listen address")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	cmd.Flags().StringVar(&database, "database", "netweave", "MongoDB database name")
	cmd.Flags().StringVar(&collection, "collection", "graphs", "MongoDB collection name")
	return cmd
}
