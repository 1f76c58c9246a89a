package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/models"
)

//go:embed schema.sql
var schema string

const invoiceSequenceName = "invoice"

type SQLiteDB struct {
	conn *sql.DB
}

// NewDB opens the store selected by cfg.DatabaseDriver. The memory driver
// keeps everything in process and is lost on exit.
func NewDB(ctx context.Context, cfg *config.Config) (DB, error) {
	if cfg.DatabaseDriver == "memory" {
		return NewMemoryDB(), nil
	}
	return NewSQLiteDB(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
}

func NewSQLiteDB(ctx context.Context, driver, dsn string) (*SQLiteDB, error) {
	if driver == "sqlite3" {
		dsn = withSQLiteParams(dsn)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteDB{conn: conn}, nil
}

// withSQLiteParams makes every transaction take the write lock up front so
// the duplicate check in CreateInvoice cannot race another writer.
func withSQLiteParams(dsn string) string {
	params := []string{"_txlock=immediate", "_busy_timeout=5000", "_foreign_keys=1", "_journal_mode=WAL"}
	for _, p := range params {
		key := p[:strings.Index(p, "=")+1]
		if strings.Contains(dsn, key) {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + p
		} else {
			dsn += "?" + p
		}
	}
	return dsn
}

func (s *SQLiteDB) Close() error {
	return s.conn.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

const timeEntryColumns = `id, project_id, date, hours, rate, amount, billable, status, description, invoice_id, created_at, updated_at`

func scanTimeEntry(r rowScanner) (*models.TimeEntry, error) {
	var e models.TimeEntry
	var status string
	var description, invoiceID sql.NullString
	if err := r.Scan(&e.ID, &e.ProjectID, &e.Date, &e.Hours, &e.Rate, &e.Amount, &e.Billable,
		&status, &description, &invoiceID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Status = models.TimeEntryStatus(status)
	e.Description = nullStringToPtr(description)
	e.InvoiceID = nullStringToPtr(invoiceID)
	return &e, nil
}

const expenseColumns = `id, project_id, date, amount, category, billable, description, invoice_id, created_at`

func scanExpense(r rowScanner) (*models.Expense, error) {
	var e models.Expense
	var description, invoiceID sql.NullString
	if err := r.Scan(&e.ID, &e.ProjectID, &e.Date, &e.Amount, &e.Category, &e.Billable,
		&description, &invoiceID, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Description = nullStringToPtr(description)
	e.InvoiceID = nullStringToPtr(invoiceID)
	return &e, nil
}

const milestoneColumns = `id, project_id, name, status, completed_at, invoice_id, created_at`

func scanMilestone(r rowScanner) (*models.Milestone, error) {
	var m models.Milestone
	var status string
	var completedAt sql.NullTime
	var invoiceID sql.NullString
	if err := r.Scan(&m.ID, &m.ProjectID, &m.Name, &status, &completedAt, &invoiceID, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Status = models.MilestoneStatus(status)
	m.CompletedAt = nullTimeToPtr(completedAt)
	m.InvoiceID = nullStringToPtr(invoiceID)
	return &m, nil
}

const contractColumns = `id, project_id, contract_type, billing_cycle, hourly_rate, fixed_amount, retainer_amount, is_active, auto_invoice, created_at`

func scanContract(r rowScanner) (*models.BillingContract, error) {
	var c models.BillingContract
	var contractType, cycle string
	var hourly, fixed, retainer decimal.NullDecimal
	if err := r.Scan(&c.ID, &c.ProjectID, &contractType, &cycle, &hourly, &fixed, &retainer,
		&c.IsActive, &c.AutoInvoice, &c.CreatedAt); err != nil {
		return nil, err
	}
	// stored verbatim so unknown types survive to the caller
	c.ContractType = models.ContractType(contractType)
	c.BillingCycle = models.BillingCycle(cycle)
	c.HourlyRate = nullDecimalToPtr(hourly)
	c.FixedAmount = nullDecimalToPtr(fixed)
	c.RetainerAmount = nullDecimalToPtr(retainer)
	return &c, nil
}

const projectColumns = `p.id, p.client_id, p.name, p.status, p.created_at, p.updated_at, c.name`

func scanProject(r rowScanner) (*models.Project, error) {
	var p models.Project
	var status string
	if err := r.Scan(&p.ID, &p.ClientID, &p.Name, &status, &p.CreatedAt, &p.UpdatedAt, &p.ClientName); err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	return &p, nil
}

const clientColumns = `id, name, company_name, contact_name, email, phone, address, tax_number, created_at, updated_at`

func scanClient(r rowScanner) (*models.Client, error) {
	var c models.Client
	var company, contact, email, phone, address, taxNumber sql.NullString
	if err := r.Scan(&c.ID, &c.Name, &company, &contact, &email, &phone, &address, &taxNumber,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CompanyName = nullStringToPtr(company)
	c.ContactName = nullStringToPtr(contact)
	c.Email = nullStringToPtr(email)
	c.Phone = nullStringToPtr(phone)
	c.Address = nullStringToPtr(address)
	c.TaxNumber = nullStringToPtr(taxNumber)
	return &c, nil
}

const invoiceColumns = `id, invoice_number, sequence, client_id, project_id, contract_id, currency, amount, discount, tax, total, status, period_start, period_end, due_date, notes, created_at, updated_at`

func scanInvoice(r rowScanner) (*models.Invoice, error) {
	var inv models.Invoice
	var status string
	var contractID, notes sql.NullString
	if err := r.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Sequence, &inv.ClientID, &inv.ProjectID, &contractID,
		&inv.Currency, &inv.Amount, &inv.Discount, &inv.Tax, &inv.Total, &status,
		&inv.PeriodStart, &inv.PeriodEnd, &inv.DueDate, &notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatus(status)
	inv.ContractID = nullStringToPtr(contractID)
	inv.Notes = nullStringToPtr(notes)
	return &inv, nil
}

func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) FindTimeEntries(ctx context.Context, projectID string, period models.Period, billable bool, statuses []models.TimeEntryStatus) ([]*models.TimeEntry, error) {
	period = period.UTC()
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries
		WHERE project_id = ? AND date >= ? AND date <= ? AND billable = ? AND invoice_id IS NULL`
	args := []any{projectID, period.Start, period.End, billable}
	if len(statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY date, id`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find time entries: %w", err)
	}
	entries, err := collect(rows, scanTimeEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to scan time entries: %w", err)
	}
	return entries, nil
}

// FindExpenses returns un-invoiced expenses dated inside period.
func (s *SQLiteDB) FindExpenses(ctx context.Context, projectID string, period models.Period, filter ExpenseFilter) ([]*models.Expense, error) {
	period = period.UTC()
	query := `SELECT ` + expenseColumns + ` FROM expenses
		WHERE project_id = ? AND date >= ? AND date <= ? AND invoice_id IS NULL`
	args := []any{projectID, period.Start, period.End}
	if filter.Billable != nil {
		query += ` AND billable = ?`
		args = append(args, *filter.Billable)
	}
	if filter.Category != nil {
		query += ` AND category = ?`
		args = append(args, *filter.Category)
	}
	query += ` ORDER BY date, id`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find expenses: %w", err)
	}
	expenses, err := collect(rows, scanExpense)
	if err != nil {
		return nil, fmt.Errorf("failed to scan expenses: %w", err)
	}
	return expenses, nil
}

func (s *SQLiteDB) FindCompletedMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+milestoneColumns+` FROM milestones
		WHERE project_id = ? AND status = ? AND invoice_id IS NULL
		ORDER BY completed_at, id`, projectID, string(models.MilestoneStatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("failed to find completed milestones: %w", err)
	}
	milestones, err := collect(rows, scanMilestone)
	if err != nil {
		return nil, fmt.Errorf("failed to scan milestones: %w", err)
	}
	return milestones, nil
}

// FindActiveContract returns the newest active contract of the given type.
func (s *SQLiteDB) FindActiveContract(ctx context.Context, projectID string, contractType models.ContractType) (*models.BillingContract, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM billing_contracts
		WHERE project_id = ? AND contract_type = ? AND is_active = 1
		ORDER BY created_at DESC, id DESC LIMIT 1`, projectID, string(contractType))
	contract, err := scanContract(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active contract: %w", err)
	}
	return contract, nil
}

func (s *SQLiteDB) FindActiveContracts(ctx context.Context, projectID string) ([]*models.BillingContract, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+contractColumns+` FROM billing_contracts
		WHERE project_id = ? AND is_active = 1 ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find active contracts: %w", err)
	}
	contracts, err := collect(rows, scanContract)
	if err != nil {
		return nil, fmt.Errorf("failed to scan contracts: %w", err)
	}
	return contracts, nil
}

func (s *SQLiteDB) FindActiveProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects p
		JOIN clients c ON c.id = p.client_id
		WHERE p.status = ? ORDER BY p.created_at, p.id`, string(models.ProjectStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to find active projects: %w", err)
	}
	projects, err := collect(rows, scanProject)
	if err != nil {
		return nil, fmt.Errorf("failed to scan projects: %w", err)
	}
	return projects, nil
}

func (s *SQLiteDB) FindExistingInvoice(ctx context.Context, lookup InvoiceLookup) (*models.Invoice, error) {
	return findExistingInvoice(ctx, s.conn, lookup)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findExistingInvoice(ctx context.Context, q queryer, lookup InvoiceLookup) (*models.Invoice, error) {
	window := lookup.Window.UTC()
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE project_id = ? AND created_at >= ? AND created_at <= ?`
	args := []any{lookup.ProjectID, window.Start, window.End}
	if lookup.ContractID != nil {
		query += ` AND contract_id = ?`
		args = append(args, *lookup.ContractID)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	inv, err := scanInvoice(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find existing invoice: %w", err)
	}
	return inv, nil
}

// CreateInvoice stores the invoice with its line items, allocates its
// sequence and marks every consumed ledger row as invoiced in one
// transaction. Contract-bound invoices are rejected with ErrDuplicateInvoice
// when one was already raised for the same contract since PeriodStart, and
// with ErrAlreadyInvoiced when another invoice claimed a consumed row first.
func (s *SQLiteDB) CreateInvoice(ctx context.Context, invoice *models.Invoice, consumed models.Consumption, numberer InvoiceNumberer) (err error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if invoice.ID == "" {
		invoice.ID = models.NewUUID()
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	invoice.UpdatedAt = invoice.CreatedAt

	if invoice.ContractID != nil {
		_, err = findExistingInvoice(ctx, tx, InvoiceLookup{
			ProjectID:  invoice.ProjectID,
			ContractID: invoice.ContractID,
			Window:     models.Period{Start: invoice.PeriodStart, End: invoice.CreatedAt},
		})
		switch {
		case err == nil:
			return ErrDuplicateInvoice
		case !errors.Is(err, ErrNotFound):
			return err
		}
		err = nil
	}

	var seq int64
	if err = tx.QueryRowContext(ctx, `INSERT INTO invoice_sequences (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value`, invoiceSequenceName).Scan(&seq); err != nil {
		return fmt.Errorf("failed to allocate invoice sequence: %w", err)
	}
	number, err := numberer(seq)
	if err != nil {
		return fmt.Errorf("failed to format invoice number: %w", err)
	}
	invoice.Sequence = seq
	invoice.InvoiceNumber = number

	_, err = tx.ExecContext(ctx, `INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID, invoice.InvoiceNumber, invoice.Sequence, invoice.ClientID, invoice.ProjectID,
		ptrToNullString(invoice.ContractID), invoice.Currency,
		invoice.Amount, invoice.Discount, invoice.Tax, invoice.Total, string(invoice.Status),
		invoice.PeriodStart.UTC(), invoice.PeriodEnd.UTC(), invoice.DueDate.UTC(),
		ptrToNullString(invoice.Notes), invoice.CreatedAt.UTC(), invoice.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateInvoice
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	for i := range invoice.LineItems {
		item := &invoice.LineItems[i]
		if item.ID == "" {
			item.ID = models.NewUUID()
		}
		item.InvoiceID = invoice.ID
		item.Position = i + 1
		if _, err = tx.ExecContext(ctx, `INSERT INTO invoice_line_items
			(id, invoice_id, description, quantity, unit_price, amount, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.InvoiceID, item.Description, item.Quantity, item.UnitPrice, item.Amount, item.Position); err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}

	if err = markConsumed(ctx, tx, "time_entries", consumed.TimeEntryIDs,
		"invoice_id = ?, status = ?, updated_at = ?", invoice.ID, string(models.TimeEntryStatusInvoiced), invoice.CreatedAt.UTC()); err != nil {
		return err
	}
	if err = markConsumed(ctx, tx, "expenses", consumed.ExpenseIDs, "invoice_id = ?", invoice.ID); err != nil {
		return err
	}
	if err = markConsumed(ctx, tx, "milestones", consumed.MilestoneIDs, "invoice_id = ?", invoice.ID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit invoice: %w", err)
	}
	return nil
}

// markConsumed claims un-invoiced rows. A row already claimed by a concurrent
// invoice fails the whole transaction.
func markConsumed(ctx context.Context, tx *sql.Tx, table string, ids []string, set string, setArgs ...any) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{}, setArgs...)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx, `UPDATE `+table+` SET `+set+`
		WHERE invoice_id IS NULL AND id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to mark %s invoiced: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark %s invoiced: %w", table, err)
	}
	if n != int64(len(ids)) {
		return fmt.Errorf("%d of %d %s already invoiced: %w", int64(len(ids))-n, len(ids), table, ErrAlreadyInvoiced)
	}
	return nil
}

func (s *SQLiteDB) UpdateInvoiceStatus(ctx context.Context, invoiceNumber string, status models.InvoiceStatus) (*models.Invoice, error) {
	res, err := s.conn.ExecContext(ctx, `UPDATE invoices SET status = ?, updated_at = ? WHERE invoice_number = ?`,
		string(status), time.Now().UTC(), invoiceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.GetInvoiceByNumber(ctx, invoiceNumber)
}

func (s *SQLiteDB) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*models.Invoice, error) {
	inv, err := scanInvoice(s.conn.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = ?`, invoiceNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `SELECT id, invoice_id, description, quantity, unit_price, amount, position
		FROM invoice_line_items WHERE invoice_id = ? ORDER BY position`, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	items, err := collect(rows, func(r rowScanner) (models.InvoiceLineItem, error) {
		var item models.InvoiceLineItem
		err := r.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity, &item.UnitPrice, &item.Amount, &item.Position)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan line items: %w", err)
	}
	inv.LineItems = items
	return inv, nil
}

// ListInvoices lists invoices without line items. An empty projectID lists all.
func (s *SQLiteDB) ListInvoices(ctx context.Context, projectID string) ([]*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY sequence`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	invoices, err := collect(rows, scanInvoice)
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoices: %w", err)
	}
	return invoices, nil
}

func (s *SQLiteDB) ListTimeEntriesByProject(ctx context.Context, projectID string) ([]*models.TimeEntry, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+timeEntryColumns+` FROM time_entries
		WHERE project_id = ? ORDER BY date, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	entries, err := collect(rows, scanTimeEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to scan time entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteDB) ListExpensesByProject(ctx context.Context, projectID string) ([]*models.Expense, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses
		WHERE project_id = ? ORDER BY date, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	expenses, err := collect(rows, scanExpense)
	if err != nil {
		return nil, fmt.Errorf("failed to scan expenses: %w", err)
	}
	return expenses, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullTimeToPtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func nullStringToPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func ptrToNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimalToPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if nd.Valid {
		return &nd.Decimal
	}
	return nil
}

func ptrToNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
