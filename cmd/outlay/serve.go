package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"outlay/internal/amqp"
	"outlay/internal/backend"
	"outlay/internal/cli"
	apphttp "outlay/internal/http"
	applog "outlay/internal/log"
	"outlay/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web app",
		Long: `Serve the web interface. When AMQP_URL is set, changes are published as
events and changes made by other processes are picked up from the queue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Addr()
			}
			return a.withBackend(cmd, func(ctx context.Context, res *backend.BackendResult) error {
				return serve(ctx, a, res, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default \":\" + PORT)")
	return cmd
}

func serve(parent context.Context, a *app, res *backend.BackendResult, addr string) error {
	logger := a.logger.WithComponent(applog.ComponentApp)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               addr,
		Expenses:           res.Expenses,
		Settings:           res.Settings,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
		Logger:             a.logger.WithComponent(applog.ComponentHTTP),
		Ready:              res.Ready,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	parent, stop := context.WithCancel(parent)
	defer stop()
	ctx, done := cli.GracefulShutdown(parent, logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", applog.FieldError, err)
		}
	})

	res.Caches.Start(ctx, cacheCleanupInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "Starting outlay server",
			"addr", addr,
			"backend", a.cfg.DataBackend,
			"edition", res.Settings.Edition())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	})
	if res.AMQP != nil {
		g.Go(func() error {
			consumeChanges(gctx, logger, res)
			return nil
		})
	}
	// A failing listener must also end the consumer and the signal watcher.
	g.Go(func() error {
		<-gctx.Done()
		stop()
		return nil
	})

	err = g.Wait()
	stop()
	<-done
	if err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// consumeChanges applies changes reported by other processes. Consumer
// failures are logged; the web app keeps serving.
func consumeChanges(ctx context.Context, logger *applog.Logger, res *backend.BackendResult) {
	err := res.AMQP.ConsumeChanges(ctx, changeHandler(logger, res.Expenses, res.Settings))
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorContext(ctx, "Change consumer stopped", applog.FieldError, err)
	}
}

// changeHandler never fails a delivery: a reload error is logged and the
// next event retries it.
func changeHandler(logger *applog.Logger, expenses *services.ExpenseService, settings *services.SettingsService) func(context.Context, amqp.ChangeEvent) error {
	return func(ctx context.Context, e amqp.ChangeEvent) error {
		logger.DebugContext(ctx, "Change event received", "routing_key", e.RoutingKey(), "id", e.ID)
		switch e.Entity {
		case amqp.EntityPreferences:
			if err := settings.Reload(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to reload preferences", applog.FieldError, err)
			}
		default:
			expenses.Refresh(ctx)
		}
		return nil
	}
}
