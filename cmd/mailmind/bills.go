package main

import (
	"fmt"

	"github.com/mailmind/mailmind/internal/model"
	"github.com/spf13/cobra"
)

func billsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bills",
		Short: "Inspect and manage tracked bill alerts",
	}

	cmd.AddCommand(billsListCmd())
	cmd.AddCommand(billsSummaryCmd())
	cmd.AddCommand(billsDismissCmd())
	cmd.AddCommand(billsPaidCmd())
	return cmd
}

func billsListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bill alerts, most urgent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			var bills []model.Bill
			if all {
				bills, err = store.GetAllBills(ctx)
			} else {
				bills, err = newTracker(store).ActiveAlerts(ctx)
			}
			if err != nil {
				return err
			}

			if len(bills) == 0 {
				fmt.Println("No bills tracked.")
				return nil
			}

			for _, bill := range bills {
				marker := " "
				if bill.LowConfidenceKey {
					marker = "?"
				}
				fmt.Printf("%s %-24s  %-9s  %-8s  $%9.2f  due %s  [%s]\n",
					marker,
					bill.ID,
					bill.Status,
					bill.Priority,
					bill.Amount,
					bill.DueDate.Format("2006-01-02"),
					bill.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include paid and dismissed bills")
	return cmd
}

func billsSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show an aggregate view of active bill alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			summary, err := newTracker(store).Summary(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Active bills:  %d\n", summary.Total)
			fmt.Printf("Overdue:       %d\n", summary.Overdue)
			fmt.Printf("Critical:      %d\n", summary.Critical)
			fmt.Printf("Due this week: %d\n", summary.DueThisWeek)
			fmt.Printf("Total amount:  $%.2f\n", summary.TotalAmount)
			return nil
		},
	}
}

func billsDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <bill-id>",
		Short: "Dismiss a bill alert",
		Long: `Dismiss a bill alert. Dismissed bills never come back, even when new
notices for the same provider and account arrive.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := newTracker(store).Dismiss(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Dismissed %s\n", args[0])
			return nil
		},
	}
}

func billsPaidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paid <bill-id>",
		Short: "Mark a bill as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := newTracker(store).MarkPaid(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Marked %s as paid\n", args[0])
			return nil
		},
	}
}
