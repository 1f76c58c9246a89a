package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Client struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	CompanyName *string   `json:"company_name,omitempty" db:"company_name"`
	ContactName *string   `json:"contact_name,omitempty" db:"contact_name"`
	Email       *string   `json:"email,omitempty" db:"email"`
	Phone       *string   `json:"phone,omitempty" db:"phone"`
	Address     *string   `json:"address,omitempty" db:"address"`
	TaxNumber   *string   `json:"tax_number,omitempty" db:"tax_number"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type Project struct {
	ID        string        `json:"id" db:"id"`
	ClientID  string        `json:"client_id" db:"client_id"`
	Name      string        `json:"name" db:"name"`
	Status    ProjectStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`

	ClientName string `json:"client_name,omitempty" db:"client_name"`
}

type TimeEntry struct {
	ID          string          `json:"id" db:"id"`
	ProjectID   string          `json:"project_id" db:"project_id"`
	Date        time.Time       `json:"date" db:"date"`
	Hours       decimal.Decimal `json:"hours" db:"hours"`
	Rate        decimal.Decimal `json:"rate" db:"rate"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Billable    bool            `json:"billable" db:"billable"`
	Status      TimeEntryStatus `json:"status" db:"status"`
	Description *string         `json:"description,omitempty" db:"description"`
	InvoiceID   *string         `json:"invoice_id,omitempty" db:"invoice_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

type Expense struct {
	ID          string          `json:"id" db:"id"`
	ProjectID   string          `json:"project_id" db:"project_id"`
	Date        time.Time       `json:"date" db:"date"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Category    string          `json:"category" db:"category"`
	Billable    bool            `json:"billable" db:"billable"`
	Description *string         `json:"description,omitempty" db:"description"`
	InvoiceID   *string         `json:"invoice_id,omitempty" db:"invoice_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// ExpenseCategoryService marks consumption counted against a retainer.
const ExpenseCategoryService = "service"

type Milestone struct {
	ID          string          `json:"id" db:"id"`
	ProjectID   string          `json:"project_id" db:"project_id"`
	Name        string          `json:"name" db:"name"`
	Status      MilestoneStatus `json:"status" db:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	InvoiceID   *string         `json:"invoice_id,omitempty" db:"invoice_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type BillingContract struct {
	ID             string           `json:"id" db:"id"`
	ProjectID      string           `json:"project_id" db:"project_id"`
	ContractType   ContractType     `json:"contract_type" db:"contract_type"`
	BillingCycle   BillingCycle     `json:"billing_cycle" db:"billing_cycle"`
	HourlyRate     *decimal.Decimal `json:"hourly_rate,omitempty" db:"hourly_rate"`
	FixedAmount    *decimal.Decimal `json:"fixed_amount,omitempty" db:"fixed_amount"`
	RetainerAmount *decimal.Decimal `json:"retainer_amount,omitempty" db:"retainer_amount"`
	IsActive       bool             `json:"is_active" db:"is_active"`
	AutoInvoice    bool             `json:"auto_invoice" db:"auto_invoice"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

type Invoice struct {
	ID            string          `json:"id" db:"id"`
	InvoiceNumber string          `json:"invoice_number" db:"invoice_number"`
	Sequence      int64           `json:"sequence" db:"sequence"`
	ClientID      string          `json:"client_id" db:"client_id"`
	ProjectID     string          `json:"project_id" db:"project_id"`
	ContractID    *string         `json:"contract_id,omitempty" db:"contract_id"`
	Currency      string          `json:"currency" db:"currency"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Discount      decimal.Decimal `json:"discount" db:"discount"`
	Tax           decimal.Decimal `json:"tax" db:"tax"`
	Total         decimal.Decimal `json:"total" db:"total"`
	Status        InvoiceStatus   `json:"status" db:"status"`
	PeriodStart   time.Time       `json:"period_start" db:"period_start"`
	PeriodEnd     time.Time       `json:"period_end" db:"period_end"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	Notes         *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`

	LineItems []InvoiceLineItem `json:"line_items"`
}

type InvoiceLineItem struct {
	ID          string          `json:"id" db:"id"`
	InvoiceID   string          `json:"invoice_id" db:"invoice_id"`
	Description string          `json:"description" db:"description"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Position    int             `json:"position" db:"position"`
}

// Consumption lists the ledger rows an invoice bills. They are marked
// invoiced in the same transaction that stores the invoice.
type Consumption struct {
	TimeEntryIDs []string
	ExpenseIDs   []string
	MilestoneIDs []string
}

func (c Consumption) Empty() bool {
	return len(c.TimeEntryIDs) == 0 && len(c.ExpenseIDs) == 0 && len(c.MilestoneIDs) == 0
}

func NewUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Period is an inclusive time window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

func (p Period) Valid() bool {
	return !p.Start.After(p.End)
}

func (p Period) UTC() Period {
	return Period{Start: p.Start.UTC(), End: p.End.UTC()}
}
