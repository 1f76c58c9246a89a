package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/service"
)

// billFlags are shared by every bill subcommand.
type billFlags struct {
	projectID string
	from, to  string
	tax       string
	discount  string
	currency  string
	terms     int
	invoice   bool
}

func (f *billFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().StringVar(&f.from, "from", "", "Start of the billing window (YYYY-MM-DD, defaults to the 1st of this month)")
	cmd.Flags().StringVar(&f.to, "to", "", "End of the billing window, inclusive (YYYY-MM-DD, defaults to the end of this month)")
	cmd.Flags().StringVar(&f.tax, "tax", "", "Tax rate percentage (defaults to BILLING_TAX_RATE)")
	cmd.Flags().StringVar(&f.discount, "discount", "", "Discount rate percentage (defaults to BILLING_DISCOUNT_RATE)")
	cmd.Flags().StringVar(&f.currency, "currency", "", "ISO currency code (defaults to BILLING_CURRENCY)")
	cmd.Flags().IntVar(&f.terms, "terms", 0, "Payment terms in days, 0 for due on receipt (defaults to BILLING_PAYMENT_TERMS_DAYS)")
	cmd.Flags().BoolVar(&f.invoice, "invoice", false, "Raise a DRAFT invoice from the result")
	cmd.MarkFlagRequired("project")
}

func (f *billFlags) configuration(cmd *cobra.Command, a *app) (service.BillingConfiguration, error) {
	cfg := a.svc.DefaultConfiguration()
	tax, err := decimalPtr("tax", f.tax)
	if err != nil {
		return cfg, err
	}
	if tax != nil {
		cfg.TaxRate = *tax
	}
	discount, err := decimalPtr("discount", f.discount)
	if err != nil {
		return cfg, err
	}
	if discount != nil {
		cfg.DiscountRate = *discount
	}
	if f.currency != "" {
		cfg.Currency = strings.ToUpper(f.currency)
	}
	if cmd.Flags().Changed("terms") {
		cfg.PaymentTerms = f.terms
	}
	return cfg, cfg.Validate()
}

func (f *billFlags) window() (time.Time, time.Time, error) {
	return parseWindow(f.from, f.to, time.Now().UTC())
}

// finish prints the result and raises an invoice when --invoice is set.
func (f *billFlags) finish(cmd *cobra.Command, a *app, result *service.BillingResult, cfg service.BillingConfiguration) error {
	printResult(result)
	if !f.invoice {
		return nil
	}
	if !result.Amount.IsPositive() {
		fmt.Println("Nothing to invoice.")
		return nil
	}

	project, err := a.svc.GetProject(cmd.Context(), f.projectID)
	if err != nil {
		return err
	}
	inv, err := a.svc.GenerateInvoice(cmd.Context(), result, project.ID, project.ClientID, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Generated invoice %s (Total: %s %s)\n", inv.InvoiceNumber, inv.Total.StringFixed(2), inv.Currency)
	return nil
}

func newBillCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Price a project under a billing model",
		Long: `Calculate what a project owes under one billing model, or several combined.
Pass --invoice to persist the result as a DRAFT invoice; the billed time,
expenses and milestones are then marked invoiced and not billed again.`,
	}

	cmd.AddCommand(
		newBillHourlyCmd(a),
		newBillRetainerCmd(a),
		newBillSubscriptionCmd(a),
		newBillFixedCmd(a),
		newBillMixedCmd(a),
	)

	return cmd
}

func newBillHourlyCmd(a *app) *cobra.Command {
	f := &billFlags{}
	cmd := &cobra.Command{
		Use:   "hourly",
		Short: "Bill approved time and billable expenses in the window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.configuration(cmd, a)
			if err != nil {
				return err
			}
			start, end, err := f.window()
			if err != nil {
				return err
			}
			result, err := a.svc.CalculateHourly(cmd.Context(), f.projectID, start, end, cfg)
			if err != nil {
				return fmt.Errorf("failed to calculate hourly billing: %w", err)
			}
			return f.finish(cmd, a, result, cfg)
		},
	}
	f.register(cmd)
	return cmd
}

func newBillRetainerCmd(a *app) *cobra.Command {
	f := &billFlags{}
	cmd := &cobra.Command{
		Use:   "retainer",
		Short: "Bill service usage above the active retainer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.configuration(cmd, a)
			if err != nil {
				return err
			}
			start, end, err := f.window()
			if err != nil {
				return err
			}
			result, err := a.svc.CalculateRetainer(cmd.Context(), f.projectID, start, end, cfg)
			if err != nil {
				return fmt.Errorf("failed to calculate retainer billing: %w", err)
			}
			return f.finish(cmd, a, result, cfg)
		},
	}
	f.register(cmd)
	return cmd
}

func newBillSubscriptionCmd(a *app) *cobra.Command {
	f := &billFlags{}
	var periodDate string
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Bill one cycle of the active subscription",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.configuration(cmd, a)
			if err != nil {
				return err
			}
			at, err := parseDateOr(periodDate, time.Now().UTC())
			if err != nil {
				return err
			}
			result, err := a.svc.CalculateSubscription(cmd.Context(), f.projectID, at, cfg)
			if err != nil {
				return fmt.Errorf("failed to calculate subscription billing: %w", err)
			}
			return f.finish(cmd, a, result, cfg)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&periodDate, "period", "", "Billing period date (YYYY-MM-DD, defaults to today)")
	return cmd
}

func newBillFixedCmd(a *app) *cobra.Command {
	f := &billFlags{}
	var payments []string
	var contractValue string
	cmd := &cobra.Command{
		Use:   "fixed",
		Short: "Bill completed milestones with declared payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.configuration(cmd, a)
			if err != nil {
				return err
			}
			model, err := fixedFeeModel(payments, contractValue)
			if err != nil {
				return err
			}
			result, err := a.svc.CalculateFixedFee(cmd.Context(), f.projectID, model, cfg)
			if err != nil {
				return fmt.Errorf("failed to calculate fixed-fee billing: %w", err)
			}
			return f.finish(cmd, a, result, cfg)
		},
	}
	f.register(cmd)
	cmd.Flags().StringArrayVarP(&payments, "milestone", "m", nil, "Milestone payment as ID=AMOUNT or ID=PCT% (repeatable)")
	cmd.Flags().StringVar(&contractValue, "contract-value", "", "Contract value percentage payments are taken from")
	return cmd
}

func fixedFeeModel(payments []string, contractValue string) (service.FixedFeeModel, error) {
	parsed, err := parseMilestonePayments(payments)
	if err != nil {
		return service.FixedFeeModel{}, err
	}
	value, err := decimalPtr("contract-value", contractValue)
	if err != nil {
		return service.FixedFeeModel{}, err
	}
	model := service.FixedFeeModel{MilestonePayments: parsed}
	if value != nil {
		model.ContractValue = *value
	}
	return model, nil
}

func newBillMixedCmd(a *app) *cobra.Command {
	f := &billFlags{}
	var kinds []string
	var payments []string
	var contractValue, periodDate string
	cmd := &cobra.Command{
		Use:   "mixed",
		Short: "Bill several models together with one discount and tax",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.configuration(cmd, a)
			if err != nil {
				return err
			}
			start, end, err := f.window()
			if err != nil {
				return err
			}

			var billingModels []service.BillingModel
			for _, kind := range kinds {
				switch strings.ToLower(strings.TrimSpace(kind)) {
				case "hourly":
					billingModels = append(billingModels, service.HourlyModel{})
				case "retainer":
					billingModels = append(billingModels, service.RetainerModel{})
				case "subscription":
					at, err := parseDateOr(periodDate, time.Time{})
					if err != nil {
						return err
					}
					billingModels = append(billingModels, service.SubscriptionModel{BillingPeriod: at})
				case "fixed", "fixed_fee":
					model, err := fixedFeeModel(payments, contractValue)
					if err != nil {
						return err
					}
					billingModels = append(billingModels, model)
				default:
					return fmt.Errorf("unknown billing model %q", kind)
				}
			}
			if len(billingModels) == 0 {
				return fmt.Errorf("at least one --model is required")
			}

			result, err := a.svc.CalculateMixed(cmd.Context(), f.projectID, billingModels, start, end, cfg)
			if err != nil {
				return fmt.Errorf("failed to calculate mixed billing: %w", err)
			}
			return f.finish(cmd, a, result, cfg)
		},
	}
	f.register(cmd)
	cmd.Flags().StringSliceVar(&kinds, "model", nil, "Models to combine: hourly, retainer, subscription, fixed")
	cmd.Flags().StringArrayVarP(&payments, "milestone", "m", nil, "Milestone payment for the fixed model as ID=AMOUNT or ID=PCT%")
	cmd.Flags().StringVar(&contractValue, "contract-value", "", "Contract value for percentage milestone payments")
	cmd.Flags().StringVar(&periodDate, "period", "", "Subscription billing period (YYYY-MM-DD, defaults to the window end)")
	return cmd
}
