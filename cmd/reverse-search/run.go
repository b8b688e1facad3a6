package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/geo-reverse-search/internal/observability"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Resolve one page of unresolved events and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context())
		},
	}
}

// runOnce performs a single bounded run. SIGINT and SIGTERM stop it before
// the next record.
func runOnce(parent context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RunTimeout)
	defer cancel()

	_, runErr := a.newJob().Run(ctx)

	if a.cfg.PushgatewayURL != "" {
		pushCtx, pushCancel := context.WithTimeout(context.WithoutCancel(parent), a.cfg.ShutdownTimeout)
		defer pushCancel()
		if err := observability.Push(pushCtx, a.cfg.PushgatewayURL, a.metrics); err != nil {
			a.logger.Error("metrics push failed", "error", err)
		}
	}

	return runErr
}
