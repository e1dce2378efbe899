// Attach command: fetch subject attachments.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dukaforge/stocklink/internal/stock"
)

var attachFlags struct {
	outDir string
}

var attachCmd = &cobra.Command{
	Use:   "attach <subject>...",
	Short: "Fetch attachments for one or more subjects",
	Long: `Fetch the attachment payload of each subject and write it to the
output directory. Each subject is fetched at most once per invocation, and a
subject that fails is reported once and not retried.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, err := buildFetcher()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(attachFlags.outDir, 0o755); err != nil {
			return err
		}

		memo := stock.NewAttachmentMemo(fetcher, logger)
		missing := 0
		for _, subject := range args {
			payload, ok := memo.Get(cmd.Context(), subject)
			if !ok {
				missing++
				fmt.Fprintf(os.Stderr, "no attachment for %s\n", subject)
				continue
			}
			path := filepath.Join(attachFlags.outDir, subject+".bin")
			if err := os.WriteFile(path, payload, 0o644); err != nil {
				return err
			}
			fmt.Printf("%s: %d bytes -> %s\n", subject, len(payload), path)
		}
		if missing > 0 {
			return fmt.Errorf("%d subject(s) had no retrievable attachment", missing)
		}
		return nil
	},
}

func init() {
	attachCmd.Flags().StringVar(&attachFlags.outDir, "out", ".", "output directory for attachment payloads")
}
