package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

var billableStatuses = []models.TimeEntryStatus{models.TimeEntryStatusApproved}

// CalculateHourly bills approved, billable, un-invoiced time and billable
// expenses dated inside [start, end]. An empty ledger yields a zero result.
func (s *BillingService) CalculateHourly(ctx context.Context, projectID string, start, end time.Time, cfg BillingConfiguration) (*BillingResult, error) {
	period, err := newPeriod(start, end)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	entries, err := withRetry(ctx, s, func() ([]*models.TimeEntry, error) {
		return s.db.FindTimeEntries(ctx, projectID, period, true, billableStatuses)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get time entries: %w", err)
	}

	billable := true
	expenses, err := withRetry(ctx, s, func() ([]*models.Expense, error) {
		return s.db.FindExpenses(ctx, projectID, period, database.ExpenseFilter{Billable: &billable})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}

	labor, err := s.laborTotal(ctx, projectID, entries)
	if err != nil {
		return nil, err
	}
	amounts := make([]decimal.Decimal, 0, len(expenses))
	for _, e := range expenses {
		amounts = append(amounts, e.Amount)
	}

	result := newResult(period, labor, money.Sum(amounts...), cfg)
	result.TimeEntries = entries
	result.Expenses = expenses

	s.logger.Debug("hourly billing calculated",
		zap.String("project_id", projectID),
		zap.Int("time_entries", len(entries)),
		zap.Int("expenses", len(expenses)),
		zap.String("total", result.Amount.String()))
	return result, nil
}

// laborTotal sums entry amounts. Entries recorded without an amount are
// priced at the project's hourly contract rate when one exists.
func (s *BillingService) laborTotal(ctx context.Context, projectID string, entries []*models.TimeEntry) (decimal.Decimal, error) {
	var rate *decimal.Decimal
	rateLoaded := false
	total := decimal.Zero
	for _, e := range entries {
		if !e.Amount.IsZero() || e.Hours.IsZero() {
			total = total.Add(e.Amount)
			continue
		}
		if !rateLoaded {
			contract, err := withRetry(ctx, s, func() (*models.BillingContract, error) {
				return s.db.FindActiveContract(ctx, projectID, models.ContractTypeHourly)
			})
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				return decimal.Zero, fmt.Errorf("failed to get hourly contract: %w", err)
			}
			if contract != nil {
				rate = contract.HourlyRate
			}
			rateLoaded = true
		}
		if rate != nil {
			total = total.Add(money.Round(e.Hours.Mul(*rate)))
		}
	}
	return total, nil
}
