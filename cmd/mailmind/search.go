package main

import (
	"fmt"
	"strings"

	"github.com/mailmind/mailmind/internal/search"
	"github.com/spf13/cobra"
)

func searchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-search stored messages",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			query := strings.Join(args, " ")
			results, err := search.New(store, nil).Search(ctx, query, limit)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("No matches.")
				return nil
			}

			for _, r := range results {
				fmt.Printf("[%s] %-50.50s  %s\n",
					r.Message.Timestamp.Format("2006-01-02"),
					r.Message.Subject,
					r.Message.From.Address)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}
