package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

func newTimeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "time",
		Short: "Record and list time entries",
	}

	cmd.AddCommand(newTimeAddCmd(a))
	cmd.AddCommand(newTimeListCmd(a))

	return cmd
}

func newTimeAddCmd(a *app) *cobra.Command {
	var projectID, date, hours, rate, status, description string
	var nonBillable bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a time entry",
		Long:  "Record hours against a project. Only APPROVED billable entries are picked up by hourly billing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entryDate, err := parseDateOr(date, time.Now().UTC())
			if err != nil {
				return err
			}
			h, err := parseDecimal("hours", hours)
			if err != nil {
				return err
			}
			r, err := parseDecimal("rate", rate)
			if err != nil {
				return err
			}
			st, err := models.ParseTimeEntryStatus(status)
			if err != nil {
				return err
			}

			entry, err := a.svc.AddTimeEntry(cmd.Context(), &models.TimeEntry{
				ProjectID:   projectID,
				Date:        entryDate,
				Hours:       h,
				Rate:        r,
				Billable:    !nonBillable,
				Status:      st,
				Description: stringPtr(description),
			})
			if err != nil {
				return fmt.Errorf("failed to add time entry: %w", err)
			}

			fmt.Printf("Recorded %sh on %s (%s) [%s]\n", entry.Hours, entry.Date.Format(time.DateOnly),
				entry.Amount.StringFixed(money.Places), entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date of the work (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&hours, "hours", "", "Hours worked (required)")
	cmd.Flags().StringVarP(&rate, "rate", "r", "0", "Hourly rate; 0 falls back to the HOURLY contract at billing time")
	cmd.Flags().StringVarP(&status, "status", "s", "APPROVED", "Status: DRAFT, SUBMITTED, APPROVED, REJECTED")
	cmd.Flags().StringVar(&description, "description", "", "What the time was spent on")
	cmd.Flags().BoolVar(&nonBillable, "non-billable", false, "Record the entry as non-billable")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("hours")

	return cmd
}

func newTimeListCmd(a *app) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's time entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.svc.ListTimeEntries(cmd.Context(), projectID)
			if err != nil {
				return fmt.Errorf("failed to list time entries: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No time entries found.")
				return nil
			}

			for _, e := range entries {
				invoiced := ""
				if e.InvoiceID != nil {
					invoiced = " (invoiced)"
				}
				fmt.Printf("%s  %s  %6sh  %10s  %-9s billable=%t%s\n",
					e.ID, e.Date.Format(time.DateOnly), e.Hours, e.Amount.StringFixed(money.Places),
					e.Status, e.Billable, invoiced)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}
