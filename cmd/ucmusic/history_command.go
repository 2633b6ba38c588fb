package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ucmusic/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show cache entries that were already converted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := history.Open(cfg.HistoryPath())
			if err := store.Load(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			names := store.Names()
			if len(names) == 0 {
				fmt.Fprintln(out, "History is empty")
				return nil
			}
			writeHistory(out, names)
			fmt.Fprintf(out, "%d entries in %s\n", len(names), store.Path())
			return nil
		},
	}
}
