// Combos command: run the combination-stock job once.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukaforge/stocklink/internal/stock"
)

var combosFlags struct {
	connector  string
	secondary  string
	partSource string
	limit      int
	item       string
	tries      int
	dryRun     bool
}

var combosCmd = &cobra.Command{
	Use:   "combos",
	Short: "Synchronize combination stock derived from part minimums",
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

		connector := combosFlags.connector
		if connector == "" {
			connector = cfg.GetString(cfgKeyComboConn)
		}
		secondary := combosFlags.secondary
		if secondary == "" {
			secondary = cfg.GetString(cfgKeyComboSecondary)
		}
		partSource := combosFlags.partSource
		if partSource == "" {
			partSource = cfg.GetString(cfgKeyComboSource)
		}
		settings := stock.Settings{
			Connector:  connector,
			Secondary:  secondary,
			PartSource: partSource,
			Limit:      combosFlags.limit,
			Item:       combosFlags.item,
			Tries:      combosFlags.tries,
			DryRun:     combosFlags.dryRun,
		}

		job := stock.NewCombinationJob(settings, fetcher, backend, logger)
		summary, err := stock.NewRunner(logger).Run(cmd.Context(), "combination", job)
		if err != nil {
			return err
		}
		fmt.Println(summary)
		return nil
	},
}

func init() {
	combosCmd.Flags().StringVar(&combosFlags.connector, "connector", "", "combination record set to fetch (default from config)")
	combosCmd.Flags().StringVar(&combosFlags.secondary, "secondary", "", "part-stock record set for --part-source=secondary")
	combosCmd.Flags().StringVar(&combosFlags.partSource, "part-source", "", "part stock source: primary, secondary or store")
	combosCmd.Flags().IntVar(&combosFlags.limit, "limit", 0, "process at most N combinations")
	combosCmd.Flags().StringVar(&combosFlags.item, "item", "", "process a single combination key")
	combosCmd.Flags().IntVar(&combosFlags.tries, "tries", 1, "fetch attempts on transport timeout")
	combosCmd.Flags().BoolVar(&combosFlags.dryRun, "dry-run", false, "reconcile but write nothing")
}
