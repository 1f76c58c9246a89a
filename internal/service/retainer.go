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

// CalculateRetainer bills service consumption above the active retainer for
// [start, end]. The retainer's base fee is billed by a paired subscription
// contract, never here.
func (s *BillingService) CalculateRetainer(ctx context.Context, projectID string, start, end time.Time, cfg BillingConfiguration) (*BillingResult, error) {
	period, err := newPeriod(start, end)
	if err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	contract, err := s.activeContract(ctx, projectID, models.ContractTypeRetainer)
	if err != nil {
		return nil, err
	}

	category := models.ExpenseCategoryService
	usage, err := withRetry(ctx, s, func() ([]*models.Expense, error) {
		return s.db.FindExpenses(ctx, projectID, period, database.ExpenseFilter{Category: &category})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get retainer usage: %w", err)
	}

	retainer := decimal.Zero
	if contract.RetainerAmount != nil {
		retainer = *contract.RetainerAmount
	}
	used := decimal.Zero
	records := make([]RetainerUsage, 0, len(usage))
	for _, e := range usage {
		used = used.Add(e.Amount)
		description := ""
		if e.Description != nil {
			description = *e.Description
		}
		records = append(records, RetainerUsage{
			ID:          e.ID,
			ProjectID:   e.ProjectID,
			Amount:      e.Amount,
			Description: description,
			Date:        e.Date,
		})
	}
	used = money.Round(used)
	overage := money.Max(decimal.Zero, used.Sub(retainer))

	result := newResult(period, overage, decimal.Zero, cfg)
	result.ContractID = &contract.ID
	result.RetainerUsage = records
	result.Retainer = &RetainerSummary{
		RetainerAmount: retainer,
		UsedAmount:     used,
		OverageAmount:  overage,
		Remaining:      money.Max(decimal.Zero, retainer.Sub(used)),
	}

	s.logger.Debug("retainer billing calculated",
		zap.String("project_id", projectID),
		zap.String("contract_id", contract.ID),
		zap.String("used", used.String()),
		zap.String("overage", overage.String()))
	return result, nil
}

// activeContract maps a missing contract to NoActiveContractError.
func (s *BillingService) activeContract(ctx context.Context, projectID string, contractType models.ContractType) (*models.BillingContract, error) {
	contract, err := withRetry(ctx, s, func() (*models.BillingContract, error) {
		return s.db.FindActiveContract(ctx, projectID, contractType)
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &NoActiveContractError{ProjectID: projectID, ContractType: contractType}
		}
		return nil, fmt.Errorf("failed to get %s contract: %w", contractType, err)
	}
	return contract, nil
}
