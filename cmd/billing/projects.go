package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage projects",
	}

	cmd.AddCommand(newProjectsCreateCmd(a))
	cmd.AddCommand(newProjectsListCmd(a))

	return cmd
}

func newProjectsCreateCmd(a *app) *cobra.Command {
	var client string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an active project for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := a.svc.CreateProject(cmd.Context(), client, args[0])
			if err != nil {
				return fmt.Errorf("failed to create project: %w", err)
			}

			fmt.Printf("Created project '%s' for %s (ID: %s)\n", project.Name, project.ClientName, project.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&client, "client", "c", "", "Client name (required)")
	cmd.MarkFlagRequired("client")

	return cmd
}

func newProjectsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.svc.ListProjects(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list projects: %w", err)
			}

			if len(projects) == 0 {
				fmt.Println("No projects found.")
				return nil
			}

			for _, p := range projects {
				fmt.Printf("%s - %s - %s [%s]\n", p.ID, p.ClientName, p.Name, p.Status)
			}
			return nil
		},
	}
}
