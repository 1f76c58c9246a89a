package database

import (
	"context"
	"errors"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateInvoice = errors.New("invoice already exists for this project, contract and period")
	// ErrAlreadyInvoiced reports a ledger row claimed by another invoice
	// between calculation and creation.
	ErrAlreadyInvoiced = errors.New("ledger row already invoiced")
)

type ExpenseFilter struct {
	Billable *bool
	Category *string
}

// InvoiceLookup finds an invoice for a project created inside Window. When
// ContractID is set only invoices raised for that contract match.
type InvoiceLookup struct {
	ProjectID  string
	ContractID *string
	Window     models.Period
}

// InvoiceNumberer formats the human-readable number for an allocated sequence.
type InvoiceNumberer func(seq int64) (string, error)

type DB interface {
	Close() error

	FindTimeEntries(ctx context.Context, projectID string, period models.Period, billable bool, statuses []models.TimeEntryStatus) ([]*models.TimeEntry, error)
	FindExpenses(ctx context.Context, projectID string, period models.Period, filter ExpenseFilter) ([]*models.Expense, error)
	FindCompletedMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error)
	FindActiveContract(ctx context.Context, projectID string, contractType models.ContractType) (*models.BillingContract, error)
	FindActiveContracts(ctx context.Context, projectID string) ([]*models.BillingContract, error)
	FindActiveProjects(ctx context.Context) ([]*models.Project, error)
	FindExistingInvoice(ctx context.Context, lookup InvoiceLookup) (*models.Invoice, error)

	CreateInvoice(ctx context.Context, invoice *models.Invoice, consumed models.Consumption, numberer InvoiceNumberer) error
	UpdateInvoiceStatus(ctx context.Context, invoiceNumber string, status models.InvoiceStatus) (*models.Invoice, error)
	GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, projectID string) ([]*models.Invoice, error)
	ListTimeEntriesByProject(ctx context.Context, projectID string) ([]*models.TimeEntry, error)
	ListExpensesByProject(ctx context.Context, projectID string) ([]*models.Expense, error)

	CreateClient(ctx context.Context, client *models.Client) error
	GetClientByName(ctx context.Context, name string) (*models.Client, error)
	ListClients(ctx context.Context) ([]*models.Client, error)
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, projectID string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	CreateContract(ctx context.Context, contract *models.BillingContract) error
	ListContracts(ctx context.Context, projectID string) ([]*models.BillingContract, error)
	CreateTimeEntry(ctx context.Context, entry *models.TimeEntry) error
	CreateExpense(ctx context.Context, expense *models.Expense) error
	CreateMilestone(ctx context.Context, milestone *models.Milestone) error
	CompleteMilestone(ctx context.Context, milestoneID string, at time.Time) (*models.Milestone, error)
	ListMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error)
}
