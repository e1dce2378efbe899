// Sync command: run the simple-stock job once.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dukaforge/stocklink/internal/stock"
)

var syncFlags struct {
	connector string
	limit     int
	item      string
	tries     int
	raw       bool
	dryRun    bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize plain per-item stock into the entity store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, err := buildFetcher()
		if err != nil {
			return err
		}
		backend, err := attachStore()
		if err != nil {
			return err
		}
		defer backend.Detach()

		connector := syncFlags.connector
		if connector == "" {
			connector = cfg.GetString(cfgKeySimpleConn)
		}
		settings := stock.Settings{
			Connector: connector,
			Limit:     syncFlags.limit,
			Item:      syncFlags.item,
			Tries:     syncFlags.tries,
			Raw:       syncFlags.raw,
			DryRun:    syncFlags.dryRun,
		}

		job := stock.NewSimpleJob(settings, fetcher, backend, logger)
		summary, err := stock.NewRunner(logger).Run(cmd.Context(), "simple", job)
		if err != nil {
			return err
		}
		if syncFlags.raw {
			_, err = os.Stdout.Write(job.RawPayload())
			return err
		}
		fmt.Println(summary)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncFlags.connector, "connector", "", "record set to fetch (default from config)")
	syncCmd.Flags().IntVar(&syncFlags.limit, "limit", 0, "process at most N items (skips zero-fill)")
	syncCmd.Flags().StringVar(&syncFlags.item, "item", "", "process a single item key (skips zero-fill)")
	syncCmd.Flags().IntVar(&syncFlags.tries, "tries", 1, "fetch attempts on transport timeout")
	syncCmd.Flags().BoolVar(&syncFlags.raw, "raw", false, "print the unprocessed payload and stop")
	syncCmd.Flags().BoolVar(&syncFlags.dryRun, "dry-run", false, "reconcile but write nothing")
}
