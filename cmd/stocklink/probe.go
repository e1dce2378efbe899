// Probe command: verify connectivity with a schema fetch.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe [operation]",
	Short: "Verify connectivity by fetching an operation's schema",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		operation := "GetDataSet"
		if len(args) == 1 {
			operation = args[0]
		}

		fetcher, err := buildFetcher()
		if err != nil {
			return err
		}
		payload, err := fetcher.Schema(cmd.Context(), operation)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "schema for %s: %d bytes\n", operation, len(payload))
		_, err = os.Stdout.Write(payload)
		return err
	},
}
