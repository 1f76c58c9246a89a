package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/models"
)

func newContractsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Manage billing contracts",
		Long:  "A contract fixes how a project is priced: HOURLY, FIXED_FEE, RETAINER, SUBSCRIPTION, MILESTONE or MIXED.",
	}

	cmd.AddCommand(newContractsCreateCmd(a))
	cmd.AddCommand(newContractsListCmd(a))

	return cmd
}

func newContractsCreateCmd(a *app) *cobra.Command {
	var projectID, contractType, cycle string
	var hourlyRate, fixedAmount, retainerAmount string
	var manual, inactive bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a billing contract for a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := decimalPtr("rate", hourlyRate)
			if err != nil {
				return err
			}
			fixed, err := decimalPtr("fixed", fixedAmount)
			if err != nil {
				return err
			}
			retainer, err := decimalPtr("retainer", retainerAmount)
			if err != nil {
				return err
			}

			contract, err := a.svc.CreateContract(cmd.Context(), &models.BillingContract{
				ProjectID:      projectID,
				ContractType:   models.ContractType(contractType),
				BillingCycle:   models.BillingCycle(cycle),
				HourlyRate:     rate,
				FixedAmount:    fixed,
				RetainerAmount: retainer,
				IsActive:       !inactive,
				AutoInvoice:    !manual,
			})
			if err != nil {
				return fmt.Errorf("failed to create contract: %w", err)
			}

			fmt.Printf("Created %s contract %s (cycle %s, auto-invoice %t)\n",
				contract.ContractType, contract.ID, contract.BillingCycle, contract.AutoInvoice)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().StringVarP(&contractType, "type", "t", "", "Contract type (required)")
	cmd.Flags().StringVar(&cycle, "cycle", "MONTHLY", "Billing cycle: WEEKLY, MONTHLY, QUARTERLY, YEARLY")
	cmd.Flags().StringVar(&hourlyRate, "rate", "", "Hourly rate")
	cmd.Flags().StringVar(&fixedAmount, "fixed", "", "Fixed amount per cycle or contract value")
	cmd.Flags().StringVar(&retainerAmount, "retainer", "", "Retainer allowance per cycle")
	cmd.Flags().BoolVar(&manual, "manual", false, "Exclude the contract from auto-invoicing")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the contract inactive")
	cmd.MarkFlagRequired("project")
	cmd.MarkFlagRequired("type")

	return cmd
}

func newContractsListCmd(a *app) *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			contracts, err := a.svc.ListContracts(cmd.Context(), projectID)
			if err != nil {
				return fmt.Errorf("failed to list contracts: %w", err)
			}

			if len(contracts) == 0 {
				fmt.Println("No contracts found.")
				return nil
			}

			for _, c := range contracts {
				fmt.Printf("%s - %s - %s - rate %s fixed %s retainer %s - active %t auto %t\n",
					c.ID, c.ContractType, c.BillingCycle,
					formatOptional(c.HourlyRate), formatOptional(c.FixedAmount), formatOptional(c.RetainerAmount),
					c.IsActive, c.AutoInvoice)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.MarkFlagRequired("project")

	return cmd
}
