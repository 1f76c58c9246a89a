package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/service"
)

func newInvoicesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "List invoices, move them through their lifecycle and render PDFs",
	}

	cmd.AddCommand(newInvoicesListCmd(a))
	cmd.AddCommand(newInvoicesShowCmd(a))
	cmd.AddCommand(newInvoicesStatusCmd(a))
	cmd.AddCommand(newInvoicesPDFCmd(a))
	cmd.AddCommand(newInvoicesExportCmd(a))

	return cmd
}

func newInvoicesListCmd(a *app) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices, optionally for one project",
		RunE: func(cmd *cobra.Command, args []string) error {
			invoices, err := a.svc.ListInvoices(cmd.Context(), projectID)
			if err != nil {
				return fmt.Errorf("failed to list invoices: %w", err)
			}

			if len(invoices) == 0 {
				fmt.Println("No invoices found.")
				return nil
			}

			for _, inv := range invoices {
				printInvoice(inv)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID")

	return cmd
}

func newInvoicesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <invoice-number>",
		Short: "Show an invoice with its line items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.svc.GetInvoice(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get invoice: %w", err)
			}

			printInvoice(inv)
			for _, item := range inv.LineItems {
				fmt.Printf("  %-24s %s\n", item.Description, money.Format(item.Amount, inv.Currency))
			}
			fmt.Printf("  %-24s %s\n", "Subtotal", money.Format(inv.Amount, inv.Currency))
			if inv.Discount.IsPositive() {
				fmt.Printf("  %-24s -%s\n", "Discount", money.Format(inv.Discount, inv.Currency))
			}
			fmt.Printf("  %-24s %s\n", "Tax", money.Format(inv.Tax, inv.Currency))
			fmt.Printf("  %-24s %s\n", "Total", money.Format(inv.Total, inv.Currency))
			if inv.Notes != nil {
				fmt.Printf("  %s\n", *inv.Notes)
			}
			return nil
		},
	}
}

func newInvoicesStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <invoice-number> <status>",
		Short: "Set an invoice's status (DRAFT, PENDING, SENT, PAID, OVERDUE, CANCELLED)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.svc.UpdateInvoiceStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Invoice %s is now %s\n", inv.InvoiceNumber, inv.Status)
			return nil
		},
	}
}

func newInvoicesPDFCmd(a *app) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "pdf <invoice-number>",
		Short: "Render an invoice to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileName := filepath.Join(outputDir, service.InvoicePDFFileName(args[0]))
			f, err := os.Create(fileName)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", fileName, err)
			}

			if err := a.svc.WriteInvoicePDF(cmd.Context(), args[0], f); err != nil {
				f.Close()
				os.Remove(fileName)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Printf("Generated invoice: %s\n", fileName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to write the PDF to")

	return cmd
}
