package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jesses-code-adventures/billing/internal/service"
)

func newAutoInvoiceCmd(a *app) *cobra.Command {
	var watch bool
	var interval time.Duration
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "autoinvoice",
		Short: "Invoice every auto-invoicing contract for its current cycle",
		Long: `Sweep all active projects and raise a DRAFT invoice for each active contract
with auto-invoicing enabled. Contracts already invoiced this cycle, and cycles
with nothing to bill, are skipped. With --watch the sweep repeats every
--interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			base := a.svc.DefaultConfiguration()

			if metricsAddr != "" {
				stop := serveMetrics(ctx, a, metricsAddr)
				defer stop()
			}

			if !watch {
				report, err := a.svc.RunAutoInvoicing(ctx, base)
				if err != nil {
					return err
				}
				printReport(report)
				return nil
			}

			fmt.Printf("Watching for auto-invoicing every %s\n", interval)
			return a.svc.WatchAutoInvoicing(ctx, base, interval, printReport)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep sweeping every --interval")
	cmd.Flags().DurationVar(&interval, "interval", time.Hour, "Time between sweeps with --watch")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	return cmd
}

// serveMetrics exposes the sweep registry until the returned stop is called.
func serveMetrics(ctx context.Context, a *app, addr string) func() {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if a.registry != nil {
		gatherer = a.registry
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log := zap.L()
	if a.logger != nil {
		log = a.logger
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func printReport(report *service.SweepReport) {
	fmt.Printf("Sweep %s: %d generated, %d skipped, %d failed\n",
		report.RunID, report.Generated, report.Skipped, report.Failed)
	for _, r := range report.Results {
		line := fmt.Sprintf("  %s %s %s: %s", r.ProjectID, r.ContractType, r.ContractID, r.Outcome)
		if r.InvoiceNumber != "" {
			line += " " + r.InvoiceNumber
		}
		if r.Outcome == service.OutcomeGenerated {
			line += " " + r.Total.StringFixed(2)
		}
		if r.Err != nil {
			line += " (" + r.Err.Error() + ")"
		}
		fmt.Println(line)
	}
}
