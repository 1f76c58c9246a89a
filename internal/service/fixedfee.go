package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

// CalculateFixedFee bills completed milestones that the model declares a
// payment for. Milestones already on an invoice are never returned by the
// store, so they cannot be billed twice. The result period is the current
// instant since milestone billing is event driven.
func (s *BillingService) CalculateFixedFee(ctx context.Context, projectID string, model FixedFeeModel, cfg BillingConfiguration) (*BillingResult, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	payments := make(map[string]decimal.Decimal, len(model.MilestonePayments))
	for _, p := range model.MilestonePayments {
		amount, err := p.resolve(model.ContractValue)
		if err != nil {
			return nil, err
		}
		payments[p.MilestoneID] = amount
	}

	completed, err := withRetry(ctx, s, func() ([]*models.Milestone, error) {
		return s.db.FindCompletedMilestones(ctx, projectID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get completed milestones: %w", err)
	}

	var ready []MilestoneCharge
	total := decimal.Zero
	for _, m := range completed {
		amount, ok := payments[m.ID]
		if !ok {
			continue
		}
		ready = append(ready, MilestoneCharge{Milestone: m, Amount: amount})
		total = total.Add(amount)
	}

	now := s.clock.Now()
	result := newResult(models.Period{Start: now, End: now}, total, decimal.Zero, cfg)
	result.ReadyForInvoicing = ready

	s.logger.Debug("fixed fee billing calculated",
		zap.String("project_id", projectID),
		zap.Int("completed", len(completed)),
		zap.Int("ready", len(ready)))
	return result, nil
}

func (p MilestonePayment) resolve(contractValue decimal.Decimal) (decimal.Decimal, error) {
	if p.Percentage == nil {
		if p.Amount.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: milestone %s has a negative payment", ErrInvalidConfiguration, p.MilestoneID)
		}
		return money.Round(p.Amount), nil
	}
	if !money.ValidRate(*p.Percentage) {
		return decimal.Zero, fmt.Errorf("%w: milestone %s percentage %s is outside [0, 100]",
			ErrInvalidConfiguration, p.MilestoneID, p.Percentage)
	}
	if !contractValue.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: milestone %s is a percentage payment without a contract value",
			ErrInvalidConfiguration, p.MilestoneID)
	}
	return money.Percent(contractValue, *p.Percentage), nil
}
