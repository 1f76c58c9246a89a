package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

func newExpensesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Record and list expenses",
		Long:  "Expenses in the 'service' category count against a retainer; billable expenses are passed through on hourly invoices.",
	}

	cmd.AddCommand(newExpensesAddCmd(a))
	cmd.AddCommand(newExpensesListCmd(a))

	return cmd
}

func newExpensesAddCmd(a *app) *cobra.Command {
	var projectID, date, amount, category, description string
	var nonBillable bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			expenseDate, err := parseDateOr(date, time.Now().UTC())
			if err != nil {
				return err
			}
			amt, err := parseDecimal("amount", amount)
			if err != nil {
				return err
			}
			if !amt.IsPositive() {
				return fmt.Errorf("amount must be greater than 0")
			}

			expense, err := a.svc.AddExpense(cmd.Context(), &models.Expense{
				ProjectID:   projectID,
				Date:        expenseDate,
				Amount:      amt,
				Category:    category,
				Billable:    !nonBillable,
				Description: stringPtr(description),
			})
			if err != nil {
				return fmt.Errorf("failed to create expense: %w", err)
			}

			fmt.Printf("Created expense: %s (%s, %s)\n", expense.ID, expense.Category, expense.Amount.StringFixed(money.Places))
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date of the expense (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount of the expense (required)")
	cmd.Flags().StringVar(&category, "category", "general", "Expense category; 'service' counts against a retainer")
	cmd.Flags().StringVar(&description, "description", "", "Reference or description")
	cmd.Flags().BoolVar(&nonBillable, "non-billable", false, "Record the expense as non-billable")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("amount")

	return cmd
}

func newExpensesListCmd(a *app) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's expenses",
		RunE: func(cmd *cobra.Command, args []string) error {
			expenses, err := a.svc.ListExpenses(cmd.Context(), projectID)
			if err != nil {
				return fmt.Errorf("failed to list expenses: %w", err)
			}

			if len(expenses) == 0 {
				fmt.Println("No expenses found.")
				return nil
			}

			total := decimal.Zero
			for _, e := range expenses {
				description := ""
				if e.Description != nil {
					description = " - " + *e.Description
				}
				fmt.Printf("%s  %s  %10s  %-10s billable=%t%s\n",
					e.ID, e.Date.Format(time.DateOnly), e.Amount.StringFixed(money.Places), e.Category, e.Billable, description)
				total = total.Add(e.Amount)
			}
			fmt.Printf("Total: %s\n", total.StringFixed(money.Places))
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}
