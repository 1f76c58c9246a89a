package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jesses-code-adventures/billing/internal/clock"
	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/models"
)

var testNow = time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		DatabaseDriver:     "memory",
		Currency:           "USD",
		PaymentTermsDays:   30,
		TaxRate:            decimal.Zero,
		DiscountRate:       decimal.Zero,
		InvoiceNumberTmpl:  DefaultInvoiceNumberTemplate,
		SweepWorkers:       2,
		SweepNodeID:        1,
		StoreRetryMaxTries: 3,
		BillingBank:        "Test Bank",
	}
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	db    database.DB
	svc   *BillingService
	clock *clock.FakeClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	return newHarnessWithDB(t, database.NewMemoryDB(), opts...)
}

func newHarnessWithDB(t *testing.T, db database.DB, opts ...Option) *harness {
	t.Helper()
	fake := clock.NewFakeClock(testNow)
	opts = append([]Option{WithClock(fake), WithLogger(zaptest.NewLogger(t))}, opts...)
	svc, err := NewBillingService(db, testConfig(), opts...)
	require.NoError(t, err)
	return &harness{t: t, ctx: context.Background(), db: db, svc: svc, clock: fake}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func jan(day int) time.Time {
	return time.Date(2025, time.January, day, 10, 0, 0, 0, time.UTC)
}

func rates(tax, discount string) BillingConfiguration {
	return BillingConfiguration{
		BillingCycle: models.BillingCycleMonthly,
		PaymentTerms: 30,
		TaxRate:      dec(tax),
		DiscountRate: dec(discount),
		Currency:     "USD",
	}
}

func (h *harness) project(clientName, name string) *models.Project {
	h.t.Helper()
	if _, err := h.db.GetClientByName(h.ctx, clientName); err != nil {
		_, err := h.svc.CreateClient(h.ctx, &models.Client{Name: clientName})
		require.NoError(h.t, err)
	}
	p, err := h.svc.CreateProject(h.ctx, clientName, name)
	require.NoError(h.t, err)
	return p
}

func (h *harness) contract(projectID string, ct models.ContractType, mutate func(*models.BillingContract)) *models.BillingContract {
	h.t.Helper()
	c := &models.BillingContract{
		ProjectID:    projectID,
		ContractType: ct,
		BillingCycle: models.BillingCycleMonthly,
		IsActive:     true,
		AutoInvoice:  true,
	}
	switch ct {
	case models.ContractTypeHourly:
		c.HourlyRate = decPtr("100")
	case models.ContractTypeRetainer:
		c.RetainerAmount = decPtr("2000")
	case models.ContractTypeSubscription, models.ContractTypeFixedFee:
		c.FixedAmount = decPtr("500")
	}
	if mutate != nil {
		mutate(c)
	}
	require.NoError(h.t, h.db.CreateContract(h.ctx, c))
	return c
}

func (h *harness) timeEntry(projectID string, date time.Time, hours string, status models.TimeEntryStatus, billable bool) *models.TimeEntry {
	h.t.Helper()
	e, err := h.svc.AddTimeEntry(h.ctx, &models.TimeEntry{
		ProjectID: projectID,
		Date:      date,
		Hours:     dec(hours),
		Rate:      dec("100"),
		Billable:  billable,
		Status:    status,
	})
	require.NoError(h.t, err)
	return e
}

func (h *harness) expense(projectID string, date time.Time, amount, category string, billable bool) *models.Expense {
	h.t.Helper()
	e, err := h.svc.AddExpense(h.ctx, &models.Expense{
		ProjectID: projectID,
		Date:      date,
		Amount:    dec(amount),
		Category:  category,
		Billable:  billable,
	})
	require.NoError(h.t, err)
	return e
}

func (h *harness) completedMilestone(projectID, name string) *models.Milestone {
	h.t.Helper()
	m, err := h.svc.AddMilestone(h.ctx, projectID, name)
	require.NoError(h.t, err)
	m, err = h.svc.CompleteMilestone(h.ctx, m.ID, jan(15))
	require.NoError(h.t, err)
	return m
}

// hourlyScenario seeds ten approved billable hours at 100 and a 50 expense,
// plus rows that must not be billed.
func (h *harness) hourlyScenario(p *models.Project) {
	h.timeEntry(p.ID, jan(6), "4", models.TimeEntryStatusApproved, true)
	h.timeEntry(p.ID, jan(7), "3", models.TimeEntryStatusApproved, true)
	h.timeEntry(p.ID, jan(8), "3", models.TimeEntryStatusApproved, true)
	h.expense(p.ID, jan(9), "50", "travel", true)

	h.timeEntry(p.ID, jan(9), "5", models.TimeEntryStatusDraft, true)
	h.timeEntry(p.ID, jan(10), "2", models.TimeEntryStatusApproved, false)
	h.expense(p.ID, jan(10), "75", "software", false)
	h.timeEntry(p.ID, jan(10).AddDate(0, -1, 0), "8", models.TimeEntryStatusApproved, true)
}

func assertBreakdownInvariant(t *testing.T, b Breakdown, cfg BillingConfiguration) {
	t.Helper()
	subtotal := b.Labor.Add(b.Expenses)
	require.True(t, b.Total.Equal(subtotal.Sub(b.Discount).Add(b.Tax)), "total %s != %s - %s + %s", b.Total, subtotal, b.Discount, b.Tax)
	require.True(t, b.Discount.Equal(subtotal.Mul(cfg.DiscountRate).Div(decimal.NewFromInt(100)).Round(2)))
	require.True(t, b.Tax.Equal(subtotal.Sub(b.Discount).Mul(cfg.TaxRate).Div(decimal.NewFromInt(100)).Round(2)))
}
