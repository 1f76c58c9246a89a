package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
)

func (s *SQLiteDB) CreateClient(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = models.NewUUID()
	}
	now := time.Now().UTC()
	client.CreatedAt, client.UpdatedAt = now, now
	_, err := s.conn.ExecContext(ctx, `INSERT INTO clients (`+clientColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID, client.Name, ptrToNullString(client.CompanyName), ptrToNullString(client.ContactName),
		ptrToNullString(client.Email), ptrToNullString(client.Phone), ptrToNullString(client.Address),
		ptrToNullString(client.TaxNumber), client.CreatedAt, client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetClientByName(ctx context.Context, name string) (*models.Client, error) {
	client, err := scanClient(s.conn.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE name = ?`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client by name: %w", err)
	}
	return client, nil
}

func (s *SQLiteDB) ListClients(ctx context.Context) ([]*models.Client, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	clients, err := collect(rows, scanClient)
	if err != nil {
		return nil, fmt.Errorf("failed to scan clients: %w", err)
	}
	return clients, nil
}

func (s *SQLiteDB) CreateProject(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = models.NewUUID()
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusActive
	}
	now := time.Now().UTC()
	project.CreatedAt, project.UpdatedAt = now, now
	_, err := s.conn.ExecContext(ctx, `INSERT INTO projects (id, client_id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		project.ID, project.ClientID, project.Name, string(project.Status), project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := scanProject(s.conn.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p
		JOIN clients c ON c.id = p.client_id WHERE p.id = ?`, projectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

func (s *SQLiteDB) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects p
		JOIN clients c ON c.id = p.client_id ORDER BY c.name, p.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	projects, err := collect(rows, scanProject)
	if err != nil {
		return nil, fmt.Errorf("failed to scan projects: %w", err)
	}
	return projects, nil
}

func (s *SQLiteDB) CreateContract(ctx context.Context, contract *models.BillingContract) error {
	if contract.ID == "" {
		contract.ID = models.NewUUID()
	}
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = time.Now().UTC()
	}
	_, err := s.conn.ExecContext(ctx, `INSERT INTO billing_contracts (`+contractColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contract.ID, contract.ProjectID, string(contract.ContractType), string(contract.BillingCycle),
		ptrToNullDecimal(contract.HourlyRate), ptrToNullDecimal(contract.FixedAmount), ptrToNullDecimal(contract.RetainerAmount),
		contract.IsActive, contract.AutoInvoice, contract.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListContracts(ctx context.Context, projectID string) ([]*models.BillingContract, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+contractColumns+` FROM billing_contracts
		WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	contracts, err := collect(rows, scanContract)
	if err != nil {
		return nil, fmt.Errorf("failed to scan contracts: %w", err)
	}
	return contracts, nil
}

func (s *SQLiteDB) CreateTimeEntry(ctx context.Context, entry *models.TimeEntry) error {
	if entry.ID == "" {
		entry.ID = models.NewUUID()
	}
	if entry.Status == "" {
		entry.Status = models.TimeEntryStatusDraft
	}
	now := time.Now().UTC()
	entry.CreatedAt, entry.UpdatedAt = now, now
	_, err := s.conn.ExecContext(ctx, `INSERT INTO time_entries (`+timeEntryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProjectID, entry.Date.UTC(), entry.Hours, entry.Rate, entry.Amount, entry.Billable,
		string(entry.Status), ptrToNullString(entry.Description), ptrToNullString(entry.InvoiceID),
		entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", err)
	}
	return nil
}

func (s *SQLiteDB) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = models.NewUUID()
	}
	expense.CreatedAt = time.Now().UTC()
	_, err := s.conn.ExecContext(ctx, `INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.ProjectID, expense.Date.UTC(), expense.Amount, expense.Category, expense.Billable,
		ptrToNullString(expense.Description), ptrToNullString(expense.InvoiceID), expense.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

func (s *SQLiteDB) CreateMilestone(ctx context.Context, milestone *models.Milestone) error {
	if milestone.ID == "" {
		milestone.ID = models.NewUUID()
	}
	if milestone.Status == "" {
		milestone.Status = models.MilestoneStatusPending
	}
	milestone.CreatedAt = time.Now().UTC()
	var completedAt sql.NullTime
	if milestone.CompletedAt != nil {
		completedAt = sql.NullTime{Time: milestone.CompletedAt.UTC(), Valid: true}
	}
	_, err := s.conn.ExecContext(ctx, `INSERT INTO milestones (`+milestoneColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		milestone.ID, milestone.ProjectID, milestone.Name, string(milestone.Status), completedAt,
		ptrToNullString(milestone.InvoiceID), milestone.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create milestone: %w", err)
	}
	return nil
}

func (s *SQLiteDB) CompleteMilestone(ctx context.Context, milestoneID string, at time.Time) (*models.Milestone, error) {
	res, err := s.conn.ExecContext(ctx, `UPDATE milestones SET status = ?, completed_at = ? WHERE id = ?`,
		string(models.MilestoneStatusCompleted), at.UTC(), milestoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete milestone: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	milestone, err := scanMilestone(s.conn.QueryRowContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, milestoneID))
	if err != nil {
		return nil, fmt.Errorf("failed to get milestone: %w", err)
	}
	return milestone, nil
}

func (s *SQLiteDB) ListMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+milestoneColumns+` FROM milestones
		WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	milestones, err := collect(rows, scanMilestone)
	if err != nil {
		return nil, fmt.Errorf("failed to scan milestones: %w", err)
	}
	return milestones, nil
}
