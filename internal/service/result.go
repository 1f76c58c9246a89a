package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

type Breakdown struct {
	Labor    decimal.Decimal `json:"labor"`
	Expenses decimal.Decimal `json:"expenses"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// NewBreakdown derives discount, tax and total from labor and expenses.
// Discount applies to the subtotal and tax to the discounted subtotal; each
// is rounded before the next step uses it.
func NewBreakdown(labor, expenses decimal.Decimal, cfg BillingConfiguration) Breakdown {
	labor = money.Round(labor)
	expenses = money.Round(expenses)
	subtotal := money.Sum(labor, expenses)
	discount := money.Percent(subtotal, cfg.DiscountRate)
	tax := money.Percent(subtotal.Sub(discount), cfg.TaxRate)
	return Breakdown{
		Labor:    labor,
		Expenses: expenses,
		Discount: discount,
		Tax:      tax,
		Total:    subtotal.Sub(discount).Add(tax),
	}
}

func (b Breakdown) Subtotal() decimal.Decimal {
	return b.Labor.Add(b.Expenses)
}

// MilestoneCharge is a completed milestone paired with its declared payment.
type MilestoneCharge struct {
	Milestone *models.Milestone `json:"milestone"`
	Amount    decimal.Decimal   `json:"amount"`
}

// RetainerUsage is a service expense counted against a retainer balance.
type RetainerUsage struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Invoiced    bool            `json:"invoiced"`
}

type RetainerSummary struct {
	RetainerAmount decimal.Decimal `json:"retainer_amount"`
	UsedAmount     decimal.Decimal `json:"used_amount"`
	OverageAmount  decimal.Decimal `json:"overage_amount"`
	Remaining      decimal.Decimal `json:"remaining"`
}

// BillingResult is what every calculator produces and the invoice generator
// consumes. Amount always equals Breakdown.Total.
type BillingResult struct {
	Amount            decimal.Decimal     `json:"amount"`
	Currency          string              `json:"currency"`
	Period            models.Period       `json:"period"`
	ContractID        *string             `json:"contract_id,omitempty"`
	TimeEntries       []*models.TimeEntry `json:"time_entries,omitempty"`
	Expenses          []*models.Expense   `json:"expenses,omitempty"`
	ReadyForInvoicing []MilestoneCharge   `json:"ready_for_invoicing,omitempty"`
	RetainerUsage     []RetainerUsage     `json:"retainer_usage,omitempty"`
	Retainer          *RetainerSummary    `json:"retainer,omitempty"`
	Breakdown         Breakdown           `json:"breakdown"`
}

func newResult(period models.Period, labor, expenses decimal.Decimal, cfg BillingConfiguration) *BillingResult {
	b := NewBreakdown(labor, expenses, cfg)
	return &BillingResult{
		Amount:    b.Total,
		Currency:  cfg.Currency,
		Period:    period,
		Breakdown: b,
	}
}

// Consumption lists the ledger rows the result bills, for marking on invoice.
// Each id appears once.
func (r *BillingResult) Consumption() models.Consumption {
	var c models.Consumption
	seen := make(map[string]bool)
	add := func(ids *[]string, id string) {
		if !seen[id] {
			seen[id] = true
			*ids = append(*ids, id)
		}
	}
	for _, e := range r.TimeEntries {
		add(&c.TimeEntryIDs, e.ID)
	}
	for _, e := range r.Expenses {
		add(&c.ExpenseIDs, e.ID)
	}
	for _, u := range r.RetainerUsage {
		add(&c.ExpenseIDs, u.ID)
	}
	for _, m := range r.ReadyForInvoicing {
		add(&c.MilestoneIDs, m.Milestone.ID)
	}
	return c
}
