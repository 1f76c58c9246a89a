package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/database"
)

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	cmd.AddCommand(newDBResetCmd(a))

	return cmd
}

func newDBResetCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete and recreate the SQLite database",
		Long: `Delete the existing SQLite database file and recreate it with a fresh schema.
This permanently deletes all clients, projects, ledger rows and invoices.

WARNING: This operation cannot be undone!`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg == nil || a.cfg.DatabaseDriver != "sqlite3" {
				return fmt.Errorf("db reset only supports local sqlite3 databases")
			}

			if !force {
				fmt.Println("WARNING: This will permanently delete all billing data!")
				fmt.Print("Are you sure you want to continue? (y/N): ")

				var response string
				fmt.Scanln(&response)

				if response != "y" && response != "Y" {
					fmt.Println("Database reset cancelled.")
					return nil
				}
			}

			dbPath := a.cfg.DatabaseURL
			if a.db != nil {
				a.db.Close()
				a.db = nil
			}
			for _, suffix := range []string{"", "-wal", "-shm"} {
				if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete database file: %w", err)
				}
			}
			fmt.Printf("Deleted existing database: %s\n", dbPath)

			db, err := database.NewSQLiteDB(cmd.Context(), a.cfg.DatabaseDriver, dbPath)
			if err != nil {
				return fmt.Errorf("failed to create new database: %w", err)
			}
			defer db.Close()

			fmt.Printf("Successfully recreated database: %s\n", dbPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")

	return cmd
}
