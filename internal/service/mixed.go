package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

// CalculateMixed runs each model's calculator over [start, end] and combines
// their labor and expenses. Discount and tax are derived once on the combined
// subtotal; the sub-results' own figures are discarded. Fixed-fee models are
// merged into one, and a milestone may be priced by only one of them. Every
// other variant may appear at most once.
func (s *BillingService) CalculateMixed(ctx context.Context, projectID string, billingModels []BillingModel, start, end time.Time, cfg BillingConfiguration) (*BillingResult, error) {
	period, err := newPeriod(start, end)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	billingModels, err = mergeFixedFee(billingModels)
	if err != nil {
		return nil, err
	}

	seen := make(map[models.ContractType]bool, len(billingModels))
	labor := decimal.Zero
	combined := &BillingResult{}

	for _, m := range billingModels {
		var sub *BillingResult
		switch m := m.(type) {
		case HourlyModel:
			sub, err = s.CalculateHourly(ctx, projectID, start, end, cfg)
		case FixedFeeModel:
			sub, err = s.CalculateFixedFee(ctx, projectID, m, cfg)
		case RetainerModel:
			sub, err = s.CalculateRetainer(ctx, projectID, start, end, cfg)
		case SubscriptionModel:
			at := m.BillingPeriod
			if at.IsZero() {
				at = end
			}
			sub, err = s.CalculateSubscription(ctx, projectID, at, cfg)
		default:
			s.logger.Warn("skipping unknown billing model",
				zap.String("project_id", projectID),
				zap.String("model", fmt.Sprintf("%T", m)))
			continue
		}

		ct := m.ContractType()
		if seen[ct] {
			return nil, fmt.Errorf("%w: %s model given more than once", ErrInvalidConfiguration, ct)
		}
		seen[ct] = true
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", ct, err)
		}

		labor = labor.Add(sub.Breakdown.Labor)
		combined.TimeEntries = append(combined.TimeEntries, sub.TimeEntries...)
		combined.Expenses = append(combined.Expenses, sub.Expenses...)
		combined.ReadyForInvoicing = append(combined.ReadyForInvoicing, sub.ReadyForInvoicing...)
		combined.RetainerUsage = append(combined.RetainerUsage, sub.RetainerUsage...)
		if sub.Retainer != nil {
			combined.Retainer = sub.Retainer
		}
	}

	// a service expense counted as retainer usage is not billed again as an
	// hourly expense
	usage := make(map[string]bool, len(combined.RetainerUsage))
	for _, u := range combined.RetainerUsage {
		usage[u.ID] = true
	}
	expenses := combined.Expenses[:0]
	var amounts []decimal.Decimal
	for _, e := range combined.Expenses {
		if usage[e.ID] {
			continue
		}
		expenses = append(expenses, e)
		amounts = append(amounts, e.Amount)
	}

	result := newResult(period, labor, money.Sum(amounts...), cfg)
	result.TimeEntries = combined.TimeEntries
	result.Expenses = expenses
	result.ReadyForInvoicing = combined.ReadyForInvoicing
	result.RetainerUsage = combined.RetainerUsage
	result.Retainer = combined.Retainer
	return result, nil
}

// mergeFixedFee folds every FixedFeeModel into one placed where the first
// appeared. Payments are resolved against their own model's ContractValue.
func mergeFixedFee(billingModels []BillingModel) ([]BillingModel, error) {
	var merged FixedFeeModel
	priced := make(map[string]bool)
	out := make([]BillingModel, 0, len(billingModels))
	first := -1
	for _, m := range billingModels {
		ff, ok := m.(FixedFeeModel)
		if !ok {
			out = append(out, m)
			continue
		}
		if first < 0 {
			first = len(out)
			out = append(out, nil)
		}
		for _, p := range ff.MilestonePayments {
			if priced[p.MilestoneID] {
				return nil, fmt.Errorf("%w: milestone %s priced by more than one fixed fee model",
					ErrInvalidConfiguration, p.MilestoneID)
			}
			priced[p.MilestoneID] = true
			amount, err := p.resolve(ff.ContractValue)
			if err != nil {
				return nil, err
			}
			merged.MilestonePayments = append(merged.MilestonePayments, MilestonePayment{MilestoneID: p.MilestoneID, Amount: amount})
		}
	}
	if first >= 0 {
		out[first] = merged
	}
	return out, nil
}
