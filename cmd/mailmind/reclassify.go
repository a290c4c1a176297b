package main

import (
	"fmt"
	"os"

	"github.com/mailmind/mailmind/internal/engine"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func reclassifyCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Rebuild all derived state from the stored messages",
		Long: `Re-derive every classification and bill from the full message history
under the current rule set.

The rebuild happens in shadow tables while the live state keeps serving
reads; the result replaces the live state in one step only when the whole
run succeeds. The outcome depends only on the stored messages and the rule
set, never on previous runs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if dryRun {
				messages, err := store.GetAllMessages(ctx)
				if err != nil {
					return err
				}
				ruleSet, err := loadRules()
				if err != nil {
					return err
				}
				fmt.Printf("Would reclassify %d messages under rule version %.12s\n",
					len(messages), ruleSet.Version())
				return nil
			}

			var bar *progressbar.ProgressBar
			factory, err := pipelineFactory(func(done, total int) {
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionShowCount(),
						progressbar.OptionShowElapsedTimeOnFinish(),
						progressbar.OptionSetWidth(40),
						progressbar.OptionSetDescription("Reclassifying messages..."),
					)
				}
				_ = bar.Set(done)
			})
			if err != nil {
				return err
			}

			reclassifier := engine.NewReclassifier(store, factory, nil)
			stats, err := reclassifier.Run(ctx)
			if err != nil {
				return err
			}
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(os.Stderr)
			}

			printStats(stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be rebuilt without changing anything")
	return cmd
}
