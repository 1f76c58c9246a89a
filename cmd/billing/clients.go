package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/models"
)

func newClientsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Manage clients",
		Long:  "Commands for creating and listing the clients invoices are addressed to.",
	}

	cmd.AddCommand(newClientsCreateCmd(a))
	cmd.AddCommand(newClientsListCmd(a))

	return cmd
}

func newClientsCreateCmd(a *app) *cobra.Command {
	var companyName, contactName, email, phone, address, taxNumber string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.svc.CreateClient(cmd.Context(), &models.Client{
				Name:        args[0],
				CompanyName: stringPtr(companyName),
				ContactName: stringPtr(contactName),
				Email:       stringPtr(email),
				Phone:       stringPtr(phone),
				Address:     stringPtr(address),
				TaxNumber:   stringPtr(taxNumber),
			})
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			fmt.Printf("Created client '%s' (ID: %s)\n", client.Name, client.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&companyName, "company", "", "Company name")
	cmd.Flags().StringVar(&contactName, "contact", "", "Contact person name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&address, "address", "", "Postal address")
	cmd.Flags().StringVar(&taxNumber, "tax", "", "Tax/VAT number")

	return cmd
}

func newClientsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			clients, err := a.svc.ListClients(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list clients: %w", err)
			}

			if len(clients) == 0 {
				fmt.Println("No clients found.")
				return nil
			}

			fmt.Println("Clients:")
			for _, client := range clients {
				company := ""
				if client.CompanyName != nil {
					company = " - " + *client.CompanyName
				}
				fmt.Printf("%s - %s%s\n", client.ID, client.Name, company)
			}
			return nil
		},
	}
}
