package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

// Profitability is a read-only view of a project's margin. Time figures are hours.
type Profitability struct {
	ProjectID    string          `json:"project_id"`
	Revenue      decimal.Decimal `json:"revenue"`
	Expenses     decimal.Decimal `json:"expenses"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	TimeTracked  decimal.Decimal `json:"time_tracked"`
	TimeInvoiced decimal.Decimal `json:"time_invoiced"`
}

// AnalyzeProfitability counts revenue from SENT and PAID invoices only and
// every expense regardless of the billable flag.
func (s *BillingService) AnalyzeProfitability(ctx context.Context, projectID string) (*Profitability, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	invoices, err := withRetry(ctx, s, func() ([]*models.Invoice, error) {
		return s.db.ListInvoices(ctx, projectID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	expenses, err := withRetry(ctx, s, func() ([]*models.Expense, error) {
		return s.db.ListExpensesByProject(ctx, projectID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	entries, err := withRetry(ctx, s, func() ([]*models.TimeEntry, error) {
		return s.db.ListTimeEntriesByProject(ctx, projectID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}

	p := &Profitability{
		ProjectID:    projectID,
		Revenue:      decimal.Zero,
		Expenses:     decimal.Zero,
		TimeTracked:  decimal.Zero,
		TimeInvoiced: decimal.Zero,
		ProfitMargin: decimal.Zero,
	}
	for _, inv := range invoices {
		if inv.Status.Realized() {
			p.Revenue = p.Revenue.Add(inv.Total)
		}
	}
	for _, e := range expenses {
		p.Expenses = p.Expenses.Add(e.Amount)
	}
	for _, e := range entries {
		p.TimeTracked = p.TimeTracked.Add(e.Hours)
		if e.InvoiceID != nil {
			p.TimeInvoiced = p.TimeInvoiced.Add(e.Hours)
		}
	}

	p.Revenue = money.Round(p.Revenue)
	p.Expenses = money.Round(p.Expenses)
	p.Profit = p.Revenue.Sub(p.Expenses)
	if p.Revenue.IsPositive() {
		p.ProfitMargin = money.Round(p.Profit.Div(p.Revenue).Mul(decimal.NewFromInt(100)))
	}
	return p, nil
}
