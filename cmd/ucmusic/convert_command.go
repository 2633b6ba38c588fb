package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"ucmusic/internal/ledger"
	"ucmusic/internal/watcher"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "convert <file.uc>",
		Short: "Convert a single cache entry without starting the watcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			d, err := ctx.openDaemon()
			if err != nil {
				return err
			}
			defer d.Close()

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			result, err := d.Convert(runCtx, path, force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch result.Outcome {
			case watcher.OutcomeConverted:
				fmt.Fprintf(out, "Converted %s -> %s\n", result.Source, result.OutputPath)
				fmt.Fprintf(out, "Enriched: %s  Tagged: %s  Cover: %s\n",
					yesNo(result.Enrich.LookedUp), yesNo(result.Enrich.Tagged), yesNo(result.Enrich.CoverEmbedded))
				if force {
					return printPriorConversions(runCtx, out, d.Ledger(), result.Source)
				}
			case watcher.OutcomeAlreadyProcessed:
				fmt.Fprintf(out, "%s is already in history (use --force to convert again)\n", result.Source)
				return printPriorConversions(runCtx, out, d.Ledger(), result.Source)
			case watcher.OutcomeIncomplete:
				return fmt.Errorf("%s is incomplete: content does not match its digest yet", result.Source)
			case watcher.OutcomeInvalidName:
				return fmt.Errorf("%s is not a cache entry ({id}-{md5}.uc)", result.Source)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Convert even when history lists the entry")
	return cmd
}

// printPriorConversions lists what the ledger knows about source. The
// history file may list entries converted before the ledger existed.
func printPriorConversions(ctx context.Context, out io.Writer, store *ledger.Store, source string) error {
	records, err := store.BySource(ctx, source)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No earlier conversions in the ledger")
		return nil
	}
	fmt.Fprintf(out, "Conversions of %s (%d):\n", source, len(records))
	writeConversions(out, records)
	return nil
}
