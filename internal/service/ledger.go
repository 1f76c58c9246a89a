package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

func (s *BillingService) CreateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	existing, err := s.db.GetClientByName(ctx, client.Name)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for existing client: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("client '%s' already exists", client.Name)
	}
	if err := s.db.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *BillingService) ListClients(ctx context.Context) ([]*models.Client, error) {
	return s.db.ListClients(ctx)
}

func (s *BillingService) CreateProject(ctx context.Context, clientName, name string) (*models.Project, error) {
	client, err := s.db.GetClientByName(ctx, clientName)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("client '%s' does not exist", clientName)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	project := &models.Project{ClientID: client.ID, Name: name, Status: models.ProjectStatusActive}
	if err := s.db.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	project.ClientName = client.Name
	return project, nil
}

func (s *BillingService) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.db.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("project '%s' does not exist: %w", projectID, err)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

func (s *BillingService) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return s.db.ListProjects(ctx)
}

// CreateContract validates the type and the amount that type needs before
// storing the contract.
func (s *BillingService) CreateContract(ctx context.Context, contract *models.BillingContract) (*models.BillingContract, error) {
	if _, err := s.GetProject(ctx, contract.ProjectID); err != nil {
		return nil, err
	}
	ct, ok := models.ParseContractType(string(contract.ContractType))
	if !ok {
		return nil, fmt.Errorf("unknown contract type: %s", contract.ContractType)
	}
	contract.ContractType = ct
	contract.BillingCycle = models.ParseBillingCycle(string(contract.BillingCycle))
	if contract.BillingCycle == "" {
		contract.BillingCycle = models.BillingCycleMonthly
	}

	var required *decimal.Decimal
	switch ct {
	case models.ContractTypeHourly:
		required = contract.HourlyRate
	case models.ContractTypeRetainer:
		required = contract.RetainerAmount
	case models.ContractTypeSubscription, models.ContractTypeFixedFee:
		required = contract.FixedAmount
	default:
		required = &decimal.Zero
	}
	if required == nil {
		return nil, fmt.Errorf("%s contract needs an amount", ct)
	}
	if required.IsNegative() {
		return nil, fmt.Errorf("%s contract amount must not be negative", ct)
	}

	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = s.clock.Now()
	}
	if err := s.db.CreateContract(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *BillingService) ListContracts(ctx context.Context, projectID string) ([]*models.BillingContract, error) {
	return s.db.ListContracts(ctx, projectID)
}

// AddTimeEntry records time. The amount is hours x rate unless given.
func (s *BillingService) AddTimeEntry(ctx context.Context, entry *models.TimeEntry) (*models.TimeEntry, error) {
	if entry.Hours.IsNegative() || entry.Rate.IsNegative() {
		return nil, fmt.Errorf("hours and rate must not be negative")
	}
	if _, err := s.GetProject(ctx, entry.ProjectID); err != nil {
		return nil, err
	}
	if entry.Amount.IsZero() {
		entry.Amount = money.Round(entry.Hours.Mul(entry.Rate))
	}
	if err := s.db.CreateTimeEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *BillingService) ListTimeEntries(ctx context.Context, projectID string) ([]*models.TimeEntry, error) {
	return s.db.ListTimeEntriesByProject(ctx, projectID)
}

func (s *BillingService) AddExpense(ctx context.Context, expense *models.Expense) (*models.Expense, error) {
	if expense.Amount.IsNegative() {
		return nil, fmt.Errorf("expense amount must not be negative")
	}
	if _, err := s.GetProject(ctx, expense.ProjectID); err != nil {
		return nil, err
	}
	expense.Amount = money.Round(expense.Amount)
	if err := s.db.CreateExpense(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *BillingService) ListExpenses(ctx context.Context, projectID string) ([]*models.Expense, error) {
	return s.db.ListExpensesByProject(ctx, projectID)
}

func (s *BillingService) AddMilestone(ctx context.Context, projectID, name string) (*models.Milestone, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	m := &models.Milestone{ProjectID: projectID, Name: name, Status: models.MilestoneStatusPending}
	if err := s.db.CreateMilestone(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CompleteMilestone marks a milestone COMPLETED at at, or now when at is zero.
func (s *BillingService) CompleteMilestone(ctx context.Context, milestoneID string, at time.Time) (*models.Milestone, error) {
	if at.IsZero() {
		at = s.clock.Now()
	}
	m, err := s.db.CompleteMilestone(ctx, milestoneID, at)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("milestone '%s' does not exist: %w", milestoneID, err)
		}
		return nil, err
	}
	return m, nil
}

func (s *BillingService) ListMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error) {
	return s.db.ListMilestones(ctx, projectID)
}
