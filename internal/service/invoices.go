package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jesses-code-adventures/billing/internal/models"
)

const (
	lineItemServices = "Professional Services"
	lineItemExpenses = "Project Expenses"
)

// GenerateInvoice persists result as a DRAFT invoice due paymentTerms days
// from now. Every time entry, expense and milestone the result billed is
// marked invoiced in the same transaction.
func (s *BillingService) GenerateInvoice(ctx context.Context, result *BillingResult, projectID, clientID string, cfg BillingConfiguration) (*models.Invoice, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	currency := result.Currency
	if currency == "" {
		currency = cfg.Currency
	}
	b := result.Breakdown
	notes := fmt.Sprintf("Billing period %s to %s",
		result.Period.Start.Format(time.DateOnly), result.Period.End.Format(time.DateOnly))

	inv := &models.Invoice{
		ClientID:    clientID,
		ProjectID:   projectID,
		ContractID:  result.ContractID,
		Currency:    currency,
		Amount:      b.Subtotal(),
		Discount:    b.Discount,
		Tax:         b.Tax,
		Total:       b.Total,
		Status:      models.InvoiceStatusDraft,
		PeriodStart: result.Period.Start,
		PeriodEnd:   result.Period.End,
		DueDate:     now.AddDate(0, 0, cfg.PaymentTerms),
		Notes:       &notes,
		CreatedAt:   now,
		LineItems:   lineItems(b),
	}

	numberer := func(seq int64) (string, error) {
		return FormatInvoiceNumber(s.cfg.InvoiceNumberTmpl, now, seq)
	}
	if err := withRetryErr(ctx, s, func() error {
		return s.db.CreateInvoice(ctx, inv, result.Consumption(), numberer)
	}); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.Info("invoice generated",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("project_id", projectID),
		zap.String("total", inv.Total.StringFixed(2)),
		zap.String("currency", inv.Currency))
	return inv, nil
}

func lineItems(b Breakdown) []models.InvoiceLineItem {
	one := decimal.NewFromInt(1)
	items := []models.InvoiceLineItem{{
		Description: lineItemServices,
		Quantity:    one,
		UnitPrice:   b.Labor,
		Amount:      b.Labor,
	}}
	if b.Expenses.IsPositive() {
		items = append(items, models.InvoiceLineItem{
			Description: lineItemExpenses,
			Quantity:    one,
			UnitPrice:   b.Expenses,
			Amount:      b.Expenses,
		})
	}
	return items
}

func (s *BillingService) GetInvoice(ctx context.Context, invoiceNumber string) (*models.Invoice, error) {
	return withRetry(ctx, s, func() (*models.Invoice, error) {
		return s.db.GetInvoiceByNumber(ctx, invoiceNumber)
	})
}

// ListInvoices lists invoices for a project, or all invoices when projectID is empty.
func (s *BillingService) ListInvoices(ctx context.Context, projectID string) ([]*models.Invoice, error) {
	return withRetry(ctx, s, func() ([]*models.Invoice, error) {
		return s.db.ListInvoices(ctx, projectID)
	})
}

// UpdateInvoiceStatus records a transition made by the send/pay workflow.
func (s *BillingService) UpdateInvoiceStatus(ctx context.Context, invoiceNumber, status string) (*models.Invoice, error) {
	st, err := models.ParseInvoiceStatus(status)
	if err != nil {
		return nil, err
	}
	inv, err := withRetry(ctx, s, func() (*models.Invoice, error) {
		return s.db.UpdateInvoiceStatus(ctx, invoiceNumber, st)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice %s: %w", invoiceNumber, err)
	}
	return inv, nil
}
