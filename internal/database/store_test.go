package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesses-code-adventures/billing/internal/models"
)

func newTestSQLite(t *testing.T) DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "billing.db")
	db, err := NewSQLiteDB(context.Background(), "sqlite3", path+"?_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func forEachStore(t *testing.T, fn func(t *testing.T, db DB)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestSQLite(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryDB()) })
}

type fixture struct {
	client   *models.Client
	project  *models.Project
	contract *models.BillingContract
}

func seed(t *testing.T, db DB) fixture {
	t.Helper()
	ctx := context.Background()
	client := &models.Client{Name: "Acme"}
	require.NoError(t, db.CreateClient(ctx, client))
	project := &models.Project{ClientID: client.ID, Name: "Website"}
	require.NoError(t, db.CreateProject(ctx, project))
	rate := decimal.NewFromInt(100)
	contract := &models.BillingContract{
		ProjectID:    project.ID,
		ContractType: models.ContractTypeHourly,
		BillingCycle: models.BillingCycleMonthly,
		HourlyRate:   &rate,
		IsActive:     true,
		AutoInvoice:  true,
	}
	require.NoError(t, db.CreateContract(ctx, contract))
	return fixture{client: client, project: project, contract: contract}
}

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 9, 0, 0, 0, time.UTC)
}

func numberer(seq int64) (string, error) {
	return fmt.Sprintf("INV-%06d", seq), nil
}

func TestFindTimeEntriesFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, db DB) {
		ctx := context.Background()
		f := seed(t, db)
		add := func(d int, billable bool, status models.TimeEntryStatus) {
			require.NoError(t, db.CreateTimeEntry(ctx, &models.TimeEntry{
				ProjectID: f.project.ID, Date: day(d), Hours: decimal.NewFromInt(1),
				Rate: decimal.NewFromInt(100), Amount: decimal.NewFromInt(100),
				Billable: billable, Status: status,
			}))
		}
		add(2, true, models.TimeEntryStatusApproved)
		add(3, true, models.TimeEntryStatusDraft)
		add(4, false, models.TimeEntryStatusApproved)
		add(20, true, models.TimeEntryStatusApproved)

		period := models.Period{Start: day(1), End: day(10)}
		entries, err := db.FindTimeEntries(ctx, f.project.ID, period, true, []models.TimeEntryStatus{models.TimeEntryStatusApproved})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Date.Equal(day(2)))
		assert.True(t, entries[0].Amount.Equal(decimal.NewFromInt(100)))

		all, err := db.FindTimeEntries(ctx, f.project.ID, period, true, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestFindExpensesFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, db DB) {
		ctx := context.Background()
		f := seed(t, db)
		for _, e := range []models.Expense{
			{Date: day(2), Amount: decimal.RequireFromString("12.50"), Category: models.ExpenseCategoryService, Billable: true},
			{Date: day(3), Amount: decimal.NewFromInt(40), Category: "travel", Billable: true},
			{Date: day(4), Amount: decimal.NewFromInt(9), Category: "travel", Billable: false},
		} {
			e.ProjectID = f.project.ID
			require.NoError(t, db.CreateExpense(ctx, &e))
		}
		period := models.Period{Start: day(1), End: day(31)}

		billable := true
		got, err := db.FindExpenses(ctx, f.project.ID, period, ExpenseFilter{Billable: &billable})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		category := models.ExpenseCategoryService
		got, err = db.FindExpenses(ctx, f.project.ID, period, ExpenseFilter{Category: &category})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "12.5", got[0].Amount.String())
	})
}

func TestFindActiveContract(t *testing.T) {
	forEachStore(t, func(t *testing.T, db DB) {
		ctx := context.Background()
		f := seed(t, db)

		got, err := db.FindActiveContract(ctx, f.project.ID, models.ContractTypeHourly)
		require.NoError(t, err)
		assert.Equal(t, f.contract.ID, got.ID)
		require.NotNil(t, got.HourlyRate)
		assert.True(t, got.HourlyRate.Equal(decimal.NewFromInt(100)))
		assert.Nil(t, got.RetainerAmount)

		_, err = db.FindActiveContract(ctx, f.project.ID, models.ContractTypeRetainer)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateInvoiceMarksConsumedRows(t *testing.T) {
	forEachStore(t, func(t *testing.T, db DB) {
		ctx := context.Background()
		f := seed(t, db)
		entry := &models.TimeEntry{ProjectID: f.project.ID, Date: day(2), Hours: decimal.NewFromInt(2),
			Rate: decimal.NewFromInt(100), Amount: decimal.NewFromInt(200), Billable: true, Status: models.TimeEntryStatusApproved}
		require.NoError(t, db.CreateTimeEntry(ctx, entry))
		expense := &models.Expense{ProjectID: f.project.ID, Date: day(3), Amount: decimal.NewFromInt(50), Billable: true}
		require.NoError(t, db.CreateExpense(ctx, expense))

		inv := &models.Invoice{
			ClientID: f.client.ID, ProjectID: f.project.ID, ContractID: &f.contract.ID, Currency: "USD",
			Amount: decimal.NewFromInt(250), Discount: decimal.Zero, Tax: decimal.Zero, Total: decimal.NewFromInt(250),
			Status: models.InvoiceStatusDraft, PeriodStart: day(1), PeriodEnd: day(31), DueDate: day(31).AddDate(0, 0, 30),
			CreatedAt: day(31),
			LineItems: []models.InvoiceLineItem{
				{Description: "Professional Services", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(200), Amount: decimal.NewFromInt(200)},
				{Description: "Project Expenses", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50), Amount: decimal.NewFromInt(50)},
			},
		}
		consumed := models.Consumption{TimeEntryIDs: []string{entry.ID}, ExpenseIDs: []string{expense.ID}}
		require.NoError(t, db.CreateInvoice(ctx, inv, consumed, numberer))
		assert.Equal(t, int64(1), inv.Sequence)
		assert.Equal(t, "INV-000001", inv.InvoiceNumber)

		stored, err := db.GetInvoiceByNumber(ctx, inv.InvoiceNumber)
		require.NoError(t, err)
		assert.True(t, stored.Total.Equal(decimal.NewFromInt(250)))
		require.Len(t, stored.LineItems, 2)
		assert.Equal(t, "Professional Services", stored.LineItems[0].Description)
		assert.Equal(t, 2, stored.LineItems[1].Position)

		entries, err := db.ListTimeEntriesByProject(ctx, f.project.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].InvoiceID)
		assert.Equal(t, inv.ID, *entries[0].InvoiceID)
		assert.Equal(t, models.TimeEntryStatusInvoiced, entries[0].Status)

		remaining, err := db.FindExpenses(ctx, f.project.ID, models.Period{Start: day(1), End: day(31)}, ExpenseFilter{})
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})
}

func TestCreateInvoiceRejectsDuplicatePeriod(t *testing.T) {
	forEachStore(t, func(t *testing.T, db DB) {
		ctx := context.Background()
		f := seed(t, db)
		newInvoice := func(created time.Time) *models.Invoice {
			return &models.Invoice{
				ClientID: f.client.ID, ProjectID: f.project.ID, ContractID: &f.contract.ID, Currency: "USD",
				Amount: decimal.NewFromInt(10), Total: decimal.NewFromInt(10), Status: models.InvoiceStatusDraft,
				PeriodStart: day(1), PeriodEnd: created, DueDate: created, CreatedAt: created,
			}
		}
		require.NoError(t, db.CreateInvoice(ctx, newInvoice(day(15)), models.Consumption{}, numberer))

		err := db.CreateInvoice(ctx, newInvoice(day(20)), models.Consumption{}, numberer)
		assert.ErrorIs(t, err, ErrDuplicateInvoice)

		found, err := db.FindExistingInvoice(ctx, InvoiceLookup{
			ProjectID: f.project.ID, ContractID: &f.contract.ID, Window: models.Period{Start: day(1), End: day(31)},
		})
		require.NoError(t, err)
		assert.Equal(t, "INV-000001", found.InvoiceNumber)

		// the rejected attempt did not burn a sequence number
		next := newInvoice(day(31))
		next.PeriodStart = day(31)
		next.ContractID = nil
		require.NoError(t, db.CreateInvoice(ctx, next, models.Consumption{}, numberer))
		assert.Equal(t, int64(2), next.Sequence)
	})
}

func TestCreateInvoiceRejectsConsumedRows(t *testing.T) {
	forEachStore(t, func(t *testing.T, db DB) {
		ctx := context.Background()
		f := seed(t, db)
		ms := &models.Milestone{ProjectID: f.project.ID, Name: "Design"}
		require.NoError(t, db.CreateMilestone(ctx, ms))
		_, err := db.CompleteMilestone(ctx, ms.ID, day(5))
		require.NoError(t, err)

		first := &models.Invoice{ClientID: f.client.ID, ProjectID: f.project.ID, Currency: "USD",
			Status: models.InvoiceStatusDraft, PeriodStart: day(1), PeriodEnd: day(5), DueDate: day(5), CreatedAt: day(5)}
		require.NoError(t, db.CreateInvoice(ctx, first, models.Consumption{MilestoneIDs: []string{ms.ID}}, numberer))

		pending, err := db.FindCompletedMilestones(ctx, f.project.ID)
		require.NoError(t, err)
		assert.Empty(t, pending)

		second := &models.Invoice{ClientID: f.client.ID, ProjectID: f.project.ID, Currency: "USD",
			Status: models.InvoiceStatusDraft, PeriodStart: day(6), PeriodEnd: day(6), DueDate: day(6), CreatedAt: day(6)}
		err = db.CreateInvoice(ctx, second, models.Consumption{MilestoneIDs: []string{ms.ID}}, numberer)
		assert.ErrorIs(t, err, ErrAlreadyInvoiced)
		assert.NotErrorIs(t, err, ErrDuplicateInvoice)

		invoices, err := db.ListInvoices(ctx, f.project.ID)
		require.NoError(t, err)
		assert.Len(t, invoices, 1)
	})
}

func TestUpdateInvoiceStatus(t *testing.T) {
	forEachStore(t, func(t *testing.T, db DB) {
		ctx := context.Background()
		f := seed(t, db)
		inv := &models.Invoice{ClientID: f.client.ID, ProjectID: f.project.ID, Currency: "USD",
			Status: models.InvoiceStatusDraft, PeriodStart: day(1), PeriodEnd: day(2), DueDate: day(2)}
		require.NoError(t, db.CreateInvoice(ctx, inv, models.Consumption{}, numberer))

		updated, err := db.UpdateInvoiceStatus(ctx, inv.InvoiceNumber, models.InvoiceStatusPaid)
		require.NoError(t, err)
		assert.Equal(t, models.InvoiceStatusPaid, updated.Status)

		_, err = db.UpdateInvoiceStatus(ctx, "INV-missing", models.InvoiceStatusPaid)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestFindActiveProjectsSkipsInactive(t *testing.T) {
	forEachStore(t, func(t *testing.T, db DB) {
		ctx := context.Background()
		f := seed(t, db)
		require.NoError(t, db.CreateProject(ctx, &models.Project{ClientID: f.client.ID, Name: "Old", Status: models.ProjectStatusCompleted}))

		projects, err := db.FindActiveProjects(ctx)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, f.project.ID, projects[0].ID)
		assert.Equal(t, "Acme", projects[0].ClientName)
	})
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", sqlite3.Error{Code: sqlite3.ErrLocked})))
	assert.False(t, IsTransient(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, IsTransient(ErrNotFound))
	assert.False(t, IsTransient(nil))
}

func TestWithSQLiteParams(t *testing.T) {
	assert.Equal(t, "a.db?_txlock=immediate&_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL", withSQLiteParams("a.db"))
	assert.Equal(t, "a.db?_busy_timeout=100&_txlock=immediate&_foreign_keys=1&_journal_mode=WAL", withSQLiteParams("a.db?_busy_timeout=100"))
}
