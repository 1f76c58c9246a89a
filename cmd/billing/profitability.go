package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/money"
)

func newProfitabilityCmd(a *app) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "profitability",
		Short: "Show a project's realized revenue, costs and margin",
		Long:  "Revenue counts SENT and PAID invoices only. Every expense is a cost, billable or not.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.svc.AnalyzeProfitability(cmd.Context(), projectID)
			if err != nil {
				return fmt.Errorf("failed to analyze profitability: %w", err)
			}

			fmt.Printf("Revenue:       %s\n", p.Revenue.StringFixed(money.Places))
			fmt.Printf("Expenses:      %s\n", p.Expenses.StringFixed(money.Places))
			fmt.Printf("Profit:        %s\n", p.Profit.StringFixed(money.Places))
			fmt.Printf("Profit margin: %s%%\n", p.ProfitMargin.StringFixed(money.Places))
			fmt.Printf("Time tracked:  %sh\n", p.TimeTracked)
			fmt.Printf("Time invoiced: %sh\n", p.TimeInvoiced)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}
