package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/satconsole/internal/analytics"
	"github.com/star/satconsole/internal/api"
	"github.com/star/satconsole/internal/catalog"
	"github.com/star/satconsole/internal/fleet"
	"github.com/star/satconsole/internal/passes"
	"github.com/star/satconsole/internal/pipeline"
	"github.com/star/satconsole/internal/propagation"
	"github.com/star/satconsole/internal/stream"
	"github.com/star/satconsole/internal/tle"
	"github.com/star/satconsole/internal/upload"
	"github.com/star/satconsole/web"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(os.Stdout, v.GetString("log-level"))

			s, err := loadSettings(v, logger)
			if err != nil {
				logger.Error("invalid configuration", "error", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, s, logger)
		},
	}
	registerServeFlags(cmd.Flags())
	return cmd
}

// serve runs the server until ctx is cancelled, then drains HTTP
// connections and stops every upload simulation.
func serve(ctx context.Context, s settings, logger *slog.Logger) error {
	records, err := catalog.Seed()
	if err != nil {
		return fmt.Errorf("loading dataset catalog: %w", err)
	}

	set, err := tle.LoadFleet(logger)
	if err != nil {
		return fmt.Errorf("loading fleet elements: %w", err)
	}
	store := tle.NewStore()
	store.Set(set)
	logger.Info("loaded fleet element sets",
		"component", "tle",
		"count", len(set.Elements),
		"epoch_min", set.EpochRange.Min.Format(time.RFC3339),
		"epoch_max", set.EpochRange.Max.Format(time.RFC3339),
	)

	prop := propagation.NewPropagator(store, propagation.PropConfig{Workers: s.Workers}, logger)

	pipelines, err := pipeline.NewRegistry()
	if err != nil {
		return fmt.Errorf("loading pipelines: %w", err)
	}

	report, err := analytics.NewService()
	if err != nil {
		return fmt.Errorf("loading analytics: %w", err)
	}

	queue := upload.NewQueue(s.Upload, logger)
	defer queue.Close()

	srv := api.NewServer(s.API, api.Deps{
		Queue:     queue,
		Datasets:  records,
		Fleet:     fleet.NewService(prop, logger, fleet.WithPasses(passes.NewPredictor(prop, s.Passes, logger))),
		Pipelines: pipelines,
		Analytics: report,
		Stream:    stream.NewHandler(queue, s.Stream, logger),
		Web:       web.Content,
	}, logger)

	// Request contexts derive from ctx so open SSE streams end on shutdown.
	srv.HTTPServer().BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", s.API.Addr, "auth_enabled", s.API.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server listen error", "error", err)
			return fmt.Errorf("listening on %s: %w", s.API.Addr, err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
