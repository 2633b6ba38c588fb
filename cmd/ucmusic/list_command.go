package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ucmusic/internal/ledger"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			records, err := store.Recent(runCtx, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No conversions recorded")
				return nil
			}
			writeConversions(out, records)
			total, enriched, err := store.Count(runCtx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d conversions recorded, %d enriched\n", total, enriched)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of conversions to show (0 for all)")
	return cmd
}

