package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/service"
)

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// decimalPtr parses an optional decimal flag; empty means unset.
func decimalPtr(name, value string) (*decimal.Decimal, error) {
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return &d, nil
}

func parseDecimal(name, value string) (decimal.Decimal, error) {
	d, err := decimalPtr(name, value)
	if err != nil {
		return decimal.Zero, err
	}
	if d == nil {
		return decimal.Zero, fmt.Errorf("--%s is required", name)
	}
	return *d, nil
}

// parseDateOr parses a YYYY-MM-DD flag, falling back to fallback when empty.
func parseDateOr(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return service.ParseDate(value)
}

// parseWindow turns --from/--to into an inclusive window. Both default to the
// current calendar month.
func parseWindow(from, to string, now time.Time) (time.Time, time.Time, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start, err := parseDateOr(from, monthStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDateOr(to, monthStart.AddDate(0, 1, -1))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, service.EndOfDay(end), nil
}

// parseMilestonePayments reads id=amount or id=pct% pairs.
func parseMilestonePayments(values []string) ([]service.MilestonePayment, error) {
	payments := make([]service.MilestonePayment, 0, len(values))
	for _, v := range values {
		id, amount, ok := strings.Cut(v, "=")
		if !ok || id == "" || amount == "" {
			return nil, fmt.Errorf("invalid milestone payment %q, expected ID=AMOUNT or ID=PCT%%", v)
		}
		if pct, isPct := strings.CutSuffix(amount, "%"); isPct {
			d, err := decimal.NewFromString(pct)
			if err != nil {
				return nil, fmt.Errorf("invalid milestone percentage %q: %w", v, err)
			}
			payments = append(payments, service.MilestonePayment{MilestoneID: id, Percentage: &d})
			continue
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid milestone amount %q: %w", v, err)
		}
		payments = append(payments, service.MilestonePayment{MilestoneID: id, Amount: d})
	}
	return payments, nil
}

func printResult(result *service.BillingResult) {
	b := result.Breakdown
	fmt.Printf("Period:   %s to %s\n", result.Period.Start.Format(time.DateOnly), result.Period.End.Format(time.DateOnly))
	fmt.Printf("Labor:    %s\n", money.Format(b.Labor, result.Currency))
	fmt.Printf("Expenses: %s\n", money.Format(b.Expenses, result.Currency))
	if b.Discount.IsPositive() {
		fmt.Printf("Discount: -%s\n", money.Format(b.Discount, result.Currency))
	}
	fmt.Printf("Tax:      %s\n", money.Format(b.Tax, result.Currency))
	fmt.Printf("Total:    %s\n", money.Format(result.Amount, result.Currency))

	if len(result.TimeEntries) > 0 {
		fmt.Printf("Time entries: %d\n", len(result.TimeEntries))
	}
	if len(result.Expenses) > 0 {
		fmt.Printf("Expenses billed: %d\n", len(result.Expenses))
	}
	for _, charge := range result.ReadyForInvoicing {
		fmt.Printf("Milestone: %s - %s\n", charge.Milestone.Name, money.Format(charge.Amount, result.Currency))
	}
	if r := result.Retainer; r != nil {
		fmt.Printf("Retainer: %s used of %s (overage %s, remaining %s)\n",
			r.UsedAmount.StringFixed(money.Places), r.RetainerAmount.StringFixed(money.Places),
			r.OverageAmount.StringFixed(money.Places), r.Remaining.StringFixed(money.Places))
	}
}

func printInvoice(inv *models.Invoice) {
	fmt.Printf("%s  %-9s  %s  %s to %s  due %s\n",
		inv.InvoiceNumber,
		inv.Status,
		money.Format(inv.Total, inv.Currency),
		inv.PeriodStart.Format(time.DateOnly),
		inv.PeriodEnd.Format(time.DateOnly),
		inv.DueDate.Format(time.DateOnly))
}

func formatOptional(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(money.Places)
}
