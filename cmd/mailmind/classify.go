package main

import (
	"fmt"

	"github.com/mailmind/mailmind/internal/model"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Run the classification pipeline over stored messages",
		Long: `Classify all stored messages, extract bill facts from billing notices,
and update tracked bill state.

Messages already classified under the current rule set are served from the
cache, so re-running is cheap and changes nothing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			factory, err := pipelineFactory(nil)
			if err != nil {
				return err
			}
			pipeline := factory(store)

			stats, err := pipeline.ProcessAll(ctx)
			if err != nil {
				return err
			}
			printStats(stats)

			if category == "" {
				return nil
			}

			// Optional listing of one category after the run.
			cat := model.ParseCategory(category)
			ruleSet, err := loadRules()
			if err != nil {
				return err
			}

			classified, err := store.GetClassificationsByCategory(ctx, ruleSet.Version(), cat)
			if err != nil {
				return fmt.Errorf("failed to list %s messages: %w", cat, err)
			}

			fmt.Printf("\n%s (%d):\n", cat, len(classified))
			for _, cm := range classified {
				fmt.Printf("  [%s] %-40.40s  %s  (score %d, %s)\n",
					cm.Message.Timestamp.Format("2006-01-02"),
					cm.Message.Subject,
					cm.Message.From.Address,
					cm.Score,
					cm.Source)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "list messages in this category after classifying")
	return cmd
}
