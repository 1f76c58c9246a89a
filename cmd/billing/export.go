package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/service"
)

func newInvoicesExportCmd(a *app) *cobra.Command {
	var projectID, fromDate, toDate, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export invoices to CSV",
		Long:  "Export invoices with their amounts and status to CSV. --from and --to filter on the issue date.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportInvoices(cmd.Context(), a, projectID, fromDate, toDate, output)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Only export this project's invoices")
	cmd.Flags().StringVarP(&fromDate, "from", "f", "", "Export invoices issued on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&toDate, "to", "t", "", "Export invoices issued on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func exportInvoices(ctx context.Context, a *app, projectID, fromDate, toDate, output string) error {
	from, err := parseDateOr(fromDate, time.Time{})
	if err != nil {
		return err
	}
	to, err := parseDateOr(toDate, time.Time{})
	if err != nil {
		return err
	}

	invoices, err := a.svc.ListInvoices(ctx, projectID)
	if err != nil {
		return err
	}

	var selected []*models.Invoice
	for _, inv := range invoices {
		if !from.IsZero() && inv.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && inv.CreatedAt.After(service.EndOfDay(to)) {
			continue
		}
		selected = append(selected, inv)
	}

	if len(selected) == 0 {
		fmt.Println("No invoices found to export.")
		return nil
	}

	var w io.Writer = os.Stdout
	if output != "" && output != "-" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		w = file
	}

	if err := writeInvoicesCSV(w, selected); err != nil {
		return err
	}

	if output != "" && output != "-" {
		fmt.Printf("Exported %d invoices to %s\n", len(selected), output)
	}
	return nil
}

func writeInvoicesCSV(w io.Writer, invoices []*models.Invoice) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{
		"Number", "Sequence", "Project ID", "Contract ID", "Status", "Currency",
		"Subtotal", "Discount", "Tax", "Total", "Period Start", "Period End", "Issued", "Due",
	}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, inv := range invoices {
		contractID := ""
		if inv.ContractID != nil {
			contractID = *inv.ContractID
		}
		record := []string{
			inv.InvoiceNumber,
			strconv.FormatInt(inv.Sequence, 10),
			inv.ProjectID,
			contractID,
			string(inv.Status),
			inv.Currency,
			inv.Amount.StringFixed(money.Places),
			inv.Discount.StringFixed(money.Places),
			inv.Tax.StringFixed(money.Places),
			inv.Total.StringFixed(money.Places),
			inv.PeriodStart.Format(time.DateOnly),
			inv.PeriodEnd.Format(time.DateOnly),
			inv.CreatedAt.Format(time.DateOnly),
			inv.DueDate.Format(time.DateOnly),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
