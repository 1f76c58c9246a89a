package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newMilestonesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "milestones",
		Short: "Manage project milestones",
		Long:  "Completed milestones are billed by fixed-fee runs once a payment is declared for them.",
	}

	cmd.AddCommand(newMilestonesAddCmd(a))
	cmd.AddCommand(newMilestonesCompleteCmd(a))
	cmd.AddCommand(newMilestonesListCmd(a))

	return cmd
}

func newMilestonesAddCmd(a *app) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a pending milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.svc.AddMilestone(cmd.Context(), projectID, args[0])
			if err != nil {
				return fmt.Errorf("failed to add milestone: %w", err)
			}
			fmt.Printf("Added milestone '%s' (ID: %s)\n", m.Name, m.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}

func newMilestonesCompleteCmd(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "complete <milestone-id>",
		Short: "Mark a milestone completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseDateOr(date, time.Time{})
			if err != nil {
				return err
			}
			m, err := a.svc.CompleteMilestone(cmd.Context(), args[0], at)
			if err != nil {
				return fmt.Errorf("failed to complete milestone: %w", err)
			}
			fmt.Printf("Completed milestone '%s' on %s\n", m.Name, m.CompletedAt.Format(time.DateOnly))
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Completion date (YYYY-MM-DD, defaults to now)")

	return cmd
}

func newMilestonesListCmd(a *app) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's milestones",
		RunE: func(cmd *cobra.Command, args []string) error {
			milestones, err := a.svc.ListMilestones(cmd.Context(), projectID)
			if err != nil {
				return fmt.Errorf("failed to list milestones: %w", err)
			}

			if len(milestones) == 0 {
				fmt.Println("No milestones found.")
				return nil
			}

			for _, m := range milestones {
				completed := ""
				if m.CompletedAt != nil {
					completed = " on " + m.CompletedAt.Format(time.DateOnly)
				}
				invoiced := ""
				if m.InvoiceID != nil {
					invoiced = " (invoiced)"
				}
				fmt.Printf("%s - %s - %s%s%s\n", m.ID, m.Name, m.Status, completed, invoiced)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}
