package database

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
)

// MemoryDB is a process-local DB. Rows are kept in insertion order and
// copied on the way in and out.
type MemoryDB struct {
	mu sync.RWMutex

	clients     []models.Client
	projects    []models.Project
	contracts   []models.BillingContract
	timeEntries []models.TimeEntry
	expenses    []models.Expense
	milestones  []models.Milestone
	invoices    []models.Invoice
	sequence    int64
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{}
}

func (m *MemoryDB) Close() error { return nil }

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (m *MemoryDB) FindTimeEntries(ctx context.Context, projectID string, period models.Period, billable bool, statuses []models.TimeEntryStatus) ([]*models.TimeEntry, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.TimeEntry
	for _, e := range m.timeEntries {
		if e.ProjectID != projectID || e.Billable != billable || e.InvoiceID != nil || !period.Contains(e.Date) {
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, e.Status) {
			continue
		}
		out = append(out, &e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryDB) FindExpenses(ctx context.Context, projectID string, period models.Period, filter ExpenseFilter) ([]*models.Expense, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Expense
	for _, e := range m.expenses {
		if e.ProjectID != projectID || e.InvoiceID != nil || !period.Contains(e.Date) {
			continue
		}
		if filter.Billable != nil && e.Billable != *filter.Billable {
			continue
		}
		if filter.Category != nil && e.Category != *filter.Category {
			continue
		}
		out = append(out, &e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MemoryDB) FindCompletedMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Milestone
	for _, ms := range m.milestones {
		if ms.ProjectID == projectID && ms.Status == models.MilestoneStatusCompleted && ms.InvoiceID == nil {
			out = append(out, &ms)
		}
	}
	return out, nil
}

func (m *MemoryDB) FindActiveContract(ctx context.Context, projectID string, contractType models.ContractType) (*models.BillingContract, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *models.BillingContract
	for _, c := range m.contracts {
		if c.ProjectID != projectID || c.ContractType != contractType || !c.IsActive {
			continue
		}
		if found == nil || !c.CreatedAt.Before(found.CreatedAt) {
			found = &c
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (m *MemoryDB) FindActiveContracts(ctx context.Context, projectID string) ([]*models.BillingContract, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.BillingContract
	for _, c := range m.contracts {
		if c.ProjectID == projectID && c.IsActive {
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MemoryDB) FindActiveProjects(ctx context.Context) ([]*models.Project, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Project
	for _, p := range m.projects {
		if p.Status == models.ProjectStatusActive {
			out = append(out, m.withClientName(p))
		}
	}
	return out, nil
}

func (m *MemoryDB) withClientName(p models.Project) *models.Project {
	for _, c := range m.clients {
		if c.ID == p.ClientID {
			p.ClientName = c.Name
			break
		}
	}
	return &p
}

func (m *MemoryDB) FindExistingInvoice(ctx context.Context, lookup InvoiceLookup) (*models.Invoice, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findExistingInvoice(lookup)
}

func (m *MemoryDB) findExistingInvoice(lookup InvoiceLookup) (*models.Invoice, error) {
	for i := len(m.invoices) - 1; i >= 0; i-- {
		inv := m.invoices[i]
		if inv.ProjectID != lookup.ProjectID || !lookup.Window.Contains(inv.CreatedAt) {
			continue
		}
		if lookup.ContractID != nil && (inv.ContractID == nil || *inv.ContractID != *lookup.ContractID) {
			continue
		}
		return copyInvoice(inv), nil
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) CreateInvoice(ctx context.Context, invoice *models.Invoice, consumed models.Consumption, numberer InvoiceNumberer) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if invoice.ID == "" {
		invoice.ID = models.NewUUID()
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	invoice.UpdatedAt = invoice.CreatedAt

	if invoice.ContractID != nil {
		_, err := m.findExistingInvoice(InvoiceLookup{
			ProjectID:  invoice.ProjectID,
			ContractID: invoice.ContractID,
			Window:     models.Period{Start: invoice.PeriodStart, End: invoice.CreatedAt},
		})
		if err == nil {
			return ErrDuplicateInvoice
		}
		for _, inv := range m.invoices {
			if inv.ProjectID == invoice.ProjectID && inv.ContractID != nil &&
				*inv.ContractID == *invoice.ContractID && inv.PeriodStart.Equal(invoice.PeriodStart) {
				return ErrDuplicateInvoice
			}
		}
	}

	// validate consumption before touching anything so a failure leaves no trace
	entryIdx, err := claimable(m.timeEntries, consumed.TimeEntryIDs, func(e models.TimeEntry) (string, *string) { return e.ID, e.InvoiceID })
	if err != nil {
		return fmt.Errorf("time_entries: %w", err)
	}
	expenseIdx, err := claimable(m.expenses, consumed.ExpenseIDs, func(e models.Expense) (string, *string) { return e.ID, e.InvoiceID })
	if err != nil {
		return fmt.Errorf("expenses: %w", err)
	}
	milestoneIdx, err := claimable(m.milestones, consumed.MilestoneIDs, func(ms models.Milestone) (string, *string) { return ms.ID, ms.InvoiceID })
	if err != nil {
		return fmt.Errorf("milestones: %w", err)
	}

	seq := m.sequence + 1
	number, err := numberer(seq)
	if err != nil {
		return fmt.Errorf("failed to format invoice number: %w", err)
	}
	for _, inv := range m.invoices {
		if inv.InvoiceNumber == number {
			return ErrDuplicateInvoice
		}
	}
	m.sequence = seq
	invoice.Sequence = seq
	invoice.InvoiceNumber = number
	for i := range invoice.LineItems {
		item := &invoice.LineItems[i]
		if item.ID == "" {
			item.ID = models.NewUUID()
		}
		item.InvoiceID = invoice.ID
		item.Position = i + 1
	}

	invoiceID := invoice.ID
	for _, i := range entryIdx {
		m.timeEntries[i].InvoiceID = &invoiceID
		m.timeEntries[i].Status = models.TimeEntryStatusInvoiced
		m.timeEntries[i].UpdatedAt = invoice.CreatedAt
	}
	for _, i := range expenseIdx {
		m.expenses[i].InvoiceID = &invoiceID
	}
	for _, i := range milestoneIdx {
		m.milestones[i].InvoiceID = &invoiceID
	}

	m.invoices = append(m.invoices, *copyInvoice(*invoice))
	return nil
}

func claimable[T any](rows []T, ids []string, key func(T) (string, *string)) ([]int, error) {
	idx := make([]int, 0, len(ids))
	for _, id := range ids {
		found := false
		for i, row := range rows {
			rowID, invoiceID := key(row)
			if rowID != id {
				continue
			}
			if invoiceID != nil {
				return nil, fmt.Errorf("%s already invoiced: %w", id, ErrAlreadyInvoiced)
			}
			idx = append(idx, i)
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
		}
	}
	return idx, nil
}

func copyInvoice(inv models.Invoice) *models.Invoice {
	inv.LineItems = slices.Clone(inv.LineItems)
	return &inv
}

func (m *MemoryDB) UpdateInvoiceStatus(ctx context.Context, invoiceNumber string, status models.InvoiceStatus) (*models.Invoice, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.invoices {
		if m.invoices[i].InvoiceNumber == invoiceNumber {
			m.invoices[i].Status = status
			m.invoices[i].UpdatedAt = time.Now().UTC()
			return copyInvoice(m.invoices[i]), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) GetInvoiceByNumber(ctx context.Context, invoiceNumber string) (*models.Invoice, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.invoices {
		if inv.InvoiceNumber == invoiceNumber {
			return copyInvoice(inv), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) ListInvoices(ctx context.Context, projectID string) ([]*models.Invoice, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Invoice
	for _, inv := range m.invoices {
		if projectID == "" || inv.ProjectID == projectID {
			c := copyInvoice(inv)
			c.LineItems = nil
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryDB) ListTimeEntriesByProject(ctx context.Context, projectID string) ([]*models.TimeEntry, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.TimeEntry
	for _, e := range m.timeEntries {
		if e.ProjectID == projectID {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (m *MemoryDB) ListExpensesByProject(ctx context.Context, projectID string) ([]*models.Expense, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Expense
	for _, e := range m.expenses {
		if e.ProjectID == projectID {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (m *MemoryDB) CreateClient(ctx context.Context, client *models.Client) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.Name == client.Name {
			return fmt.Errorf("failed to create client: name %q already exists", client.Name)
		}
	}
	if client.ID == "" {
		client.ID = models.NewUUID()
	}
	now := time.Now().UTC()
	client.CreatedAt, client.UpdatedAt = now, now
	m.clients = append(m.clients, *client)
	return nil
}

func (m *MemoryDB) GetClientByName(ctx context.Context, name string) (*models.Client, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) ListClients(ctx context.Context) ([]*models.Client, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryDB) CreateProject(ctx context.Context, project *models.Project) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.ContainsFunc(m.clients, func(c models.Client) bool { return c.ID == project.ClientID }) {
		return fmt.Errorf("failed to create project: client %s: %w", project.ClientID, ErrNotFound)
	}
	if project.ID == "" {
		project.ID = models.NewUUID()
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusActive
	}
	now := time.Now().UTC()
	project.CreatedAt, project.UpdatedAt = now, now
	m.projects = append(m.projects, *project)
	return nil
}

func (m *MemoryDB) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.projects {
		if p.ID == projectID {
			return m.withClientName(p), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) ListProjects(ctx context.Context) ([]*models.Project, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, m.withClientName(p))
	}
	return out, nil
}

func (m *MemoryDB) CreateContract(ctx context.Context, contract *models.BillingContract) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if contract.ID == "" {
		contract.ID = models.NewUUID()
	}
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = time.Now().UTC()
	}
	m.contracts = append(m.contracts, *contract)
	return nil
}

func (m *MemoryDB) ListContracts(ctx context.Context, projectID string) ([]*models.BillingContract, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.BillingContract
	for _, c := range m.contracts {
		if c.ProjectID == projectID {
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MemoryDB) CreateTimeEntry(ctx context.Context, entry *models.TimeEntry) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = models.NewUUID()
	}
	if entry.Status == "" {
		entry.Status = models.TimeEntryStatusDraft
	}
	now := time.Now().UTC()
	entry.CreatedAt, entry.UpdatedAt = now, now
	m.timeEntries = append(m.timeEntries, *entry)
	return nil
}

func (m *MemoryDB) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if expense.ID == "" {
		expense.ID = models.NewUUID()
	}
	expense.CreatedAt = time.Now().UTC()
	m.expenses = append(m.expenses, *expense)
	return nil
}

func (m *MemoryDB) CreateMilestone(ctx context.Context, milestone *models.Milestone) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if milestone.ID == "" {
		milestone.ID = models.NewUUID()
	}
	if milestone.Status == "" {
		milestone.Status = models.MilestoneStatusPending
	}
	milestone.CreatedAt = time.Now().UTC()
	m.milestones = append(m.milestones, *milestone)
	return nil
}

func (m *MemoryDB) CompleteMilestone(ctx context.Context, milestoneID string, at time.Time) (*models.Milestone, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.milestones {
		if m.milestones[i].ID == milestoneID {
			completedAt := at.UTC()
			m.milestones[i].Status = models.MilestoneStatusCompleted
			m.milestones[i].CompletedAt = &completedAt
			ms := m.milestones[i]
			return &ms, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryDB) ListMilestones(ctx context.Context, projectID string) ([]*models.Milestone, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Milestone
	for _, ms := range m.milestones {
		if ms.ProjectID == projectID {
			out = append(out, &ms)
		}
	}
	return out, nil
}

var _ DB = (*MemoryDB)(nil)
var _ DB = (*SQLiteDB)(nil)
