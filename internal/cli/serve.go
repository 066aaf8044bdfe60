package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/luadoc-gen/internal/bundle"
	"github.com/example/luadoc-gen/internal/docserver"
)

func newServeCommand(logger func() *zap.Logger) *cobra.Command {
	var (
		addr     string
		basePath string
	)

	cmd := &cobra.Command{
		Use:   "serve <bundle-dir>",
		Short: "Serve the documents of a bundle directory as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			defer func() { _ = log.Sync() }()

			catalog, err := bundle.LoadCatalog(args[0])
			if err != nil {
				return fmt.Errorf("load bundles: %w", err)
			}
			handler := docserver.NewHandler(catalog, docserver.Config{
				BasePath:  basePath,
				AssetsDir: args[0],
			}, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			log.Info("serving documentation", zap.String("addr", addr), zap.Int("modules", catalog.Len()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3000", "Address to listen on")
	cmd.Flags().StringVar(&basePath, "base-path", "/docs", "Path prefix of the JSON documents")
	return cmd
}
