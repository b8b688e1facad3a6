package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/geo-reverse-search/internal/adapter/http"
	"github.com/couchcryptid/geo-reverse-search/internal/pipeline"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on a fixed interval with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := pipeline.NewScheduler(a.newJob(), a.cfg.ScheduleInterval, a.cfg.RunTimeout, a.logger, nil)
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, scheduler, a.metrics.Registry, a.logger)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
		}
	}()

	// Start scheduler.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Run(ctx); err != nil {
			a.logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.logger.Warn("scheduler did not stop before shutdown timeout")
	}

	a.logger.Info("shutdown complete")
	return nil
}
