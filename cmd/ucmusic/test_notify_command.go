package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.openDaemon()
			if err != nil {
				return err
			}
			defer d.Close()

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			_, message, err := d.TestNotification(runCtx)
			fmt.Fprintln(cmd.OutOrStdout(), message)
			return err
		},
	}
}
