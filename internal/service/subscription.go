package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
)

// CalculateSubscription bills the active subscription's fixed amount as a
// point-in-time charge at billingPeriod.
func (s *BillingService) CalculateSubscription(ctx context.Context, projectID string, billingPeriod time.Time, cfg BillingConfiguration) (*BillingResult, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	contract, err := s.activeContract(ctx, projectID, models.ContractTypeSubscription)
	if err != nil {
		return nil, err
	}

	amount := decimal.Zero
	if contract.FixedAmount != nil {
		amount = *contract.FixedAmount
	}
	result := newResult(models.Period{Start: billingPeriod, End: billingPeriod}, amount, decimal.Zero, cfg)
	result.ContractID = &contract.ID
	return result, nil
}
