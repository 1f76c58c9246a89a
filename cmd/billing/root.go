package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/logger"
	"github.com/jesses-code-adventures/billing/internal/metrics"
	"github.com/jesses-code-adventures/billing/internal/service"
)

// app is built once the root flags are parsed. Tests preset svc to skip it.
type app struct {
	dbConn   string
	dbDriver string

	cfg      *config.Config
	db       database.DB
	logger   *zap.Logger
	registry *prometheus.Registry
	svc      *service.BillingService
}

func (a *app) init(cmd *cobra.Command) error {
	if a.svc != nil {
		return nil
	}

	cfg, err := config.Load(a.dbConn, a.dbDriver)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	db, err := database.NewDB(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	svc, err := service.NewBillingService(db, cfg,
		service.WithLogger(log),
		service.WithMetrics(metrics.NewSweepMetrics(a.registry)))
	if err != nil {
		db.Close()
		return err
	}

	a.cfg, a.db, a.logger, a.svc = cfg, db, log, svc
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "billing",
		Short: "Multi-model billing engine for client projects",
		Long: `Record time, expenses and milestones against client projects, price them under
hourly, fixed-fee, retainer, subscription or mixed contracts, and raise invoices
by hand or through the auto-invoicing sweep.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dbConn, "db", "", "Database URL or file (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&a.dbDriver, "driver", "", "Database driver: sqlite3, libsql or memory (defaults to DATABASE_DRIVER)")

	rootCmd.AddCommand(
		newClientsCmd(a),
		newProjectsCmd(a),
		newContractsCmd(a),
		newTimeCmd(a),
		newExpensesCmd(a),
		newMilestonesCmd(a),
		newBillCmd(a),
		newAutoInvoiceCmd(a),
		newInvoicesCmd(a),
		newProfitabilityCmd(a),
		newConfigCmd(a),
		newDBCmd(a),
	)

	return rootCmd
}
