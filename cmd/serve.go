package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/snooze/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the in-memory story service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd); err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting story service", "addr", addr)
	return server.New(addr, server.NewBackend(), r.logger).Run(ctx)
}
