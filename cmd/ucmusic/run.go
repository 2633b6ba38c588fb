package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// runWatcher runs the polling loop in the foreground until interrupted.
func runWatcher(cmd *cobra.Command, ctx *commandContext) error {
	d, err := ctx.openDaemon()
	if err != nil {
		return err
	}
	defer d.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	runCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return d.Run(runCtx)
}
