package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mailmind/mailmind/internal/model"
	"github.com/spf13/cobra"
)

// rawMessage is the JSON shape of one record in a mail feed export.
type rawMessage struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Snippet   string    `json:"snippet"`
	FromName  string    `json:"from_name"`
	From      string    `json:"from"`
	To        []string  `json:"to"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

func ingestCmd() *cobra.Command {
	var process bool

	cmd := &cobra.Command{
		Use:   "ingest <file.json>",
		Short: "Load raw messages from a JSON export",
		Long: `Load a JSON array of raw email records into the message store.

Ingestion is idempotent: a message ID that was already ingested is skipped,
so re-running on an overlapping export is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			var raw []rawMessage
			if err := json.Unmarshal(data, &raw); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			messages := make([]model.Message, 0, len(raw))
			for _, r := range raw {
				msg := model.Message{
					ID:        r.ID,
					Subject:   r.Subject,
					Body:      r.Body,
					Snippet:   r.Snippet,
					From:      model.EmailAddress{Name: r.FromName, Address: r.From},
					Timestamp: r.Timestamp,
					Read:      r.Read,
				}
				for _, to := range r.To {
					msg.To = append(msg.To, model.EmailAddress{Address: to})
				}
				messages = append(messages, msg)
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.SaveMessages(ctx, messages); err != nil {
				return fmt.Errorf("failed to save messages: %w", err)
			}
			fmt.Printf("Ingested %d messages\n", len(messages))

			if !process {
				return nil
			}

			factory, err := pipelineFactory(nil)
			if err != nil {
				return err
			}

			stats, err := factory(store).ProcessAll(ctx)
			if err != nil {
				return err
			}
			printStats(stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&process, "process", false, "run the classification pipeline after ingesting")
	return cmd
}
