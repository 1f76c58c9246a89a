package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

type SweepOutcome string

const (
	OutcomeGenerated          SweepOutcome = "generated"
	OutcomeSkippedExisting    SweepOutcome = "skipped_existing"
	OutcomeSkippedConflict    SweepOutcome = "skipped_conflict"
	OutcomeSkippedZero        SweepOutcome = "skipped_zero"
	OutcomeSkippedUnsupported SweepOutcome = "skipped_unsupported"
	OutcomeFailed             SweepOutcome = "failed"
)

// SweepResult is the outcome of one (project, contract) task.
type SweepResult struct {
	ProjectID     string              `json:"project_id"`
	ContractID    string              `json:"contract_id,omitempty"`
	ContractType  models.ContractType `json:"contract_type,omitempty"`
	Period        models.Period       `json:"period"`
	Outcome       SweepOutcome        `json:"outcome"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	Total         decimal.Decimal     `json:"total"`
	Err           error               `json:"-"`
}

type SweepReport struct {
	RunID     string        `json:"run_id"`
	Started   time.Time     `json:"started"`
	Finished  time.Time     `json:"finished"`
	Generated int           `json:"generated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Results   []SweepResult `json:"results"`
}

// sweepTask is one project's auto-invoicing contracts in sweep order.
type sweepTask struct {
	project   *models.Project
	contracts []*models.BillingContract
	// retainer is set when the project has an active RETAINER contract; its
	// service expenses are then retainer usage, not hourly expenses.
	retainer bool
}

var sweepRank = map[models.ContractType]int{
	models.ContractTypeRetainer:     0,
	models.ContractTypeSubscription: 1,
	models.ContractTypeHourly:       2,
}

func sweepOrder(a, b *models.BillingContract) int {
	rank := func(c *models.BillingContract) int {
		if r, ok := sweepRank[c.ContractType]; ok {
			return r
		}
		return len(sweepRank)
	}
	if r := cmp.Compare(rank(a), rank(b)); r != 0 {
		return r
	}
	return cmp.Compare(a.ID, b.ID)
}

// RunAutoInvoicing invoices every active, auto-invoicing contract of every
// active project for its current cycle. Projects run on a bounded worker
// pool; a project's contracts run one after another in a fixed order so the
// outcome does not depend on scheduling. A failing task never stops the
// others. Only a failure to list projects fails the sweep as a whole.
func (s *BillingService) RunAutoInvoicing(ctx context.Context, base BillingConfiguration) (*SweepReport, error) {
	base = base.withDefaults()
	if err := base.Validate(); err != nil {
		return nil, err
	}

	report := &SweepReport{
		RunID:   s.node.Generate().String(),
		Started: s.clock.Now(),
	}
	log := s.logger.With(zap.String("run_id", report.RunID))
	log.Info("auto-invoicing sweep started")

	projects, err := withRetry(ctx, s, func() ([]*models.Project, error) {
		return s.db.FindActiveProjects(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active projects: %w", err)
	}

	var tasks []sweepTask
	for _, p := range projects {
		contracts, err := withRetry(ctx, s, func() ([]*models.BillingContract, error) {
			return s.db.FindActiveContracts(ctx, p.ID)
		})
		if err != nil {
			log.Error("failed to list contracts", zap.String("project_id", p.ID), zap.Error(err))
			report.Results = append(report.Results, SweepResult{ProjectID: p.ID, Outcome: OutcomeFailed, Err: err})
			continue
		}
		task := sweepTask{project: p}
		for _, c := range contracts {
			if !c.IsActive {
				continue
			}
			if ct, _ := models.ParseContractType(string(c.ContractType)); ct == models.ContractTypeRetainer {
				task.retainer = true
			}
			if c.AutoInvoice {
				task.contracts = append(task.contracts, c)
			}
		}
		if len(task.contracts) > 0 {
			slices.SortFunc(task.contracts, sweepOrder)
			tasks = append(tasks, task)
		}
	}

	results := make([][]SweepResult, len(tasks))
	var g errgroup.Group
	g.SetLimit(max(1, s.cfg.SweepWorkers))
	for i, task := range tasks {
		g.Go(func() error {
			for _, c := range task.contracts {
				results[i] = append(results[i], s.runSweepTask(ctx, log, base, task, c))
			}
			return nil
		})
	}
	_ = g.Wait()
	for _, r := range results {
		report.Results = append(report.Results, r...)
	}

	for _, r := range report.Results {
		switch r.Outcome {
		case OutcomeGenerated:
			report.Generated++
			s.metrics.AddInvoiced(base.Currency, r.Total.InexactFloat64())
		case OutcomeFailed:
			report.Failed++
		default:
			report.Skipped++
		}
		s.metrics.ObserveOutcome(string(r.Outcome), contractTypeLabel(r.ContractType))
	}
	report.Finished = s.clock.Now()
	s.metrics.ObserveRun(report.Started, report.Finished)

	log.Info("auto-invoicing sweep finished",
		zap.Int("tasks", len(report.Results)),
		zap.Int("generated", report.Generated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

// contractTypeLabel bounds the metric label to the known contract types.
func contractTypeLabel(ct models.ContractType) string {
	if ct == "" {
		return ""
	}
	if parsed, ok := models.ParseContractType(string(ct)); ok {
		return string(parsed)
	}
	return "UNKNOWN"
}

func (s *BillingService) runSweepTask(ctx context.Context, log *zap.Logger, base BillingConfiguration, task sweepTask, contract *models.BillingContract) (res SweepResult) {
	project := task.project
	res = SweepResult{ProjectID: project.ID, ContractID: contract.ID, ContractType: contract.ContractType}
	log = log.With(zap.String("project_id", project.ID), zap.String("contract_id", contract.ID))

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("panic: %v", r)
		}
		if res.Outcome == OutcomeFailed {
			log.Error("auto-invoicing task failed", zap.Error(res.Err))
		}
	}()

	if err := ctx.Err(); err != nil {
		return fail(res, err)
	}

	ct, ok := models.ParseContractType(string(contract.ContractType))
	if !ok {
		log.Debug("skipping unknown contract type", zap.String("contract_type", string(contract.ContractType)))
		res.Outcome = OutcomeSkippedUnsupported
		return res
	}

	cfg := base.ForContract(contract)
	now := s.clock.Now()
	period := PeriodForCycle(cfg.BillingCycle, now)
	res.Period = period

	existing, err := withRetry(ctx, s, func() (*models.Invoice, error) {
		return s.db.FindExistingInvoice(ctx, database.InvoiceLookup{
			ProjectID:  project.ID,
			ContractID: &contract.ID,
			Window:     period,
		})
	})
	switch {
	case err == nil:
		res.Outcome = OutcomeSkippedExisting
		res.InvoiceNumber = existing.InvoiceNumber
		return res
	case !errors.Is(err, database.ErrNotFound):
		return fail(res, fmt.Errorf("failed to check existing invoice: %w", err))
	}

	var result *BillingResult
	switch ct {
	case models.ContractTypeHourly:
		result, err = s.CalculateHourly(ctx, project.ID, period.Start, period.End, cfg)
		if err == nil && task.retainer {
			result = withoutRetainerUsage(result, cfg)
		}
	case models.ContractTypeRetainer:
		result, err = s.CalculateRetainer(ctx, project.ID, period.Start, period.End, cfg)
	case models.ContractTypeSubscription:
		result, err = s.CalculateSubscription(ctx, project.ID, period.Start, cfg)
	case models.ContractTypeFixedFee, models.ContractTypeMilestone, models.ContractTypeMixed:
		// milestone payments are declared by the caller, not stored
		res.Outcome = OutcomeSkippedUnsupported
		return res
	}
	if err != nil {
		return fail(res, err)
	}

	res.Total = result.Amount
	if !result.Amount.IsPositive() {
		res.Outcome = OutcomeSkippedZero
		return res
	}

	result.ContractID = &contract.ID
	result.Period = period
	inv, err := s.GenerateInvoice(ctx, result, project.ID, project.ClientID, cfg)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateInvoice):
			res.Outcome = OutcomeSkippedExisting
			return res
		case errors.Is(err, database.ErrAlreadyInvoiced):
			log.Warn("ledger rows claimed by another invoice", zap.Error(err))
			res.Outcome = OutcomeSkippedConflict
			return res
		}
		return fail(res, err)
	}

	res.Outcome = OutcomeGenerated
	res.InvoiceNumber = inv.InvoiceNumber
	return res
}

// withoutRetainerUsage drops service expenses from an hourly result and
// re-derives its breakdown.
func withoutRetainerUsage(r *BillingResult, cfg BillingConfiguration) *BillingResult {
	var kept []*models.Expense
	var amounts []decimal.Decimal
	for _, e := range r.Expenses {
		if e.Category == models.ExpenseCategoryService {
			continue
		}
		kept = append(kept, e)
		amounts = append(amounts, e.Amount)
	}
	out := newResult(r.Period, r.Breakdown.Labor, money.Sum(amounts...), cfg)
	out.TimeEntries = r.TimeEntries
	out.Expenses = kept
	return out
}

func fail(res SweepResult, err error) SweepResult {
	res.Outcome = OutcomeFailed
	res.Err = err
	return res
}

// WatchAutoInvoicing runs a sweep immediately and then every interval until
// ctx is done. onReport, when set, receives each completed report.
func (s *BillingService) WatchAutoInvoicing(ctx context.Context, base BillingConfiguration, interval time.Duration, onReport func(*SweepReport)) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := s.RunAutoInvoicing(ctx, base)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("auto-invoicing sweep failed", zap.Error(err))
		} else if onReport != nil {
			onReport(report)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
