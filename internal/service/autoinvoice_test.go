package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/metrics"
	"github.com/jesses-code-adventures/billing/internal/models"
)

// failingDB fails time entry lookups for a single project.
type failingDB struct {
	database.DB
	projectID string
}

func (f *failingDB) FindTimeEntries(ctx context.Context, projectID string, period models.Period, billable bool, statuses []models.TimeEntryStatus) ([]*models.TimeEntry, error) {
	if projectID == f.projectID {
		return nil, errors.New("disk on fire")
	}
	return f.DB.FindTimeEntries(ctx, projectID, period, billable, statuses)
}

// rivalDB lets a competing manual invoice claim the same ledger rows just
// before the first invoice is written.
type rivalDB struct {
	database.DB
	once sync.Once
}

func (r *rivalDB) CreateInvoice(ctx context.Context, inv *models.Invoice, consumed models.Consumption, numberer database.InvoiceNumberer) error {
	r.once.Do(func() {
		rival := &models.Invoice{
			ClientID: inv.ClientID, ProjectID: inv.ProjectID, Currency: inv.Currency,
			Status: models.InvoiceStatusDraft, PeriodStart: inv.PeriodStart, PeriodEnd: inv.PeriodEnd,
			DueDate: inv.DueDate, CreatedAt: inv.CreatedAt,
		}
		if err := r.DB.CreateInvoice(ctx, rival, consumed, numberer); err != nil {
			panic(err)
		}
	})
	return r.DB.CreateInvoice(ctx, inv, consumed, numberer)
}

func outcomes(report *SweepReport) map[SweepOutcome]int {
	out := map[SweepOutcome]int{}
	for _, r := range report.Results {
		out[r.Outcome]++
	}
	return out
}

func TestRunAutoInvoicingIsIdempotent(t *testing.T) {
	h := newHarness(t)
	p := h.project("acme", "Website")
	h.contract(p.ID, models.ContractTypeHourly, nil)
	h.hourlyScenario(p)

	first, err := h.svc.RunAutoInvoicing(h.ctx, rates("10", "0"))
	require.NoError(t, err)
	require.Len(t, first.Results, 1)
	assert.Equal(t, OutcomeGenerated, first.Results[0].Outcome)
	assert.Equal(t, "1155", first.Results[0].Total.String())
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), first.Results[0].Period.Start)
	assert.NotEmpty(t, first.RunID)

	h.clock.Advance(time.Hour)
	second, err := h.svc.RunAutoInvoicing(h.ctx, rates("10", "0"))
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.Equal(t, OutcomeSkippedExisting, second.Results[0].Outcome)
	assert.Equal(t, first.Results[0].InvoiceNumber, second.Results[0].InvoiceNumber)
	assert.NotEqual(t, first.RunID, second.RunID)

	invoices, err := h.svc.ListInvoices(h.ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestRunAutoInvoicingIsolatesFailures(t *testing.T) {
	mem := database.NewMemoryDB()
	db := &failingDB{DB: mem}
	h := newHarnessWithDB(t, db)

	var projects []*models.Project
	for _, name := range []string{"One", "Two", "Three"} {
		p := h.project("acme", name)
		h.contract(p.ID, models.ContractTypeHourly, nil)
		h.hourlyScenario(p)
		projects = append(projects, p)
	}
	db.projectID = projects[1].ID

	report, err := h.svc.RunAutoInvoicing(h.ctx, rates("0", "0"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Generated)
	assert.Equal(t, 1, report.Failed)
	for _, r := range report.Results {
		if r.ProjectID == projects[1].ID {
			assert.Equal(t, OutcomeFailed, r.Outcome)
			assert.ErrorContains(t, r.Err, "disk on fire")
		} else {
			assert.Equal(t, OutcomeGenerated, r.Outcome)
		}
	}

	invoices, err := h.svc.ListInvoices(h.ctx, "")
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
}

func TestRunAutoInvoicingRetainerUsageIsOrderIndependent(t *testing.T) {
	cases := []struct {
		name            string
		retainerFirst   bool
		retainer        string
		wantRetainer    SweepOutcome
		wantRetainerSum string
	}{
		{"retainer created first", true, "100", OutcomeGenerated, "30"},
		{"hourly created first", false, "100", OutcomeGenerated, "30"},
		{"usage within retainer, retainer first", true, "200", OutcomeSkippedZero, "0"},
		{"usage within retainer, hourly first", false, "200", OutcomeSkippedZero, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			p := h.project("acme", "Support")
			retainer := func() {
				h.contract(p.ID, models.ContractTypeRetainer, func(c *models.BillingContract) { c.RetainerAmount = decPtr(tc.retainer) })
			}
			hourly := func() { h.contract(p.ID, models.ContractTypeHourly, nil) }
			if tc.retainerFirst {
				retainer()
				hourly()
			} else {
				hourly()
				retainer()
			}
			h.timeEntry(p.ID, jan(6), "4", models.TimeEntryStatusApproved, true)
			h.timeEntry(p.ID, jan(7), "6", models.TimeEntryStatusApproved, true)
			usage := h.expense(p.ID, jan(8), "130", models.ExpenseCategoryService, true)

			report, err := h.svc.RunAutoInvoicing(h.ctx, rates("0", "0"))
			require.NoError(t, err)
			require.Len(t, report.Results, 2)
			assert.Equal(t, 0, report.Failed)

			assert.Equal(t, models.ContractTypeRetainer, report.Results[0].ContractType)
			assert.Equal(t, tc.wantRetainer, report.Results[0].Outcome)
			assert.Equal(t, tc.wantRetainerSum, report.Results[0].Total.String())

			assert.Equal(t, models.ContractTypeHourly, report.Results[1].ContractType)
			assert.Equal(t, OutcomeGenerated, report.Results[1].Outcome)
			assert.Equal(t, "1000", report.Results[1].Total.String())

			invoices, err := h.svc.ListInvoices(h.ctx, p.ID)
			require.NoError(t, err)
			for _, inv := range invoices {
				if inv.ContractID != nil && *inv.ContractID == report.Results[1].ContractID {
					assert.Equal(t, "1000", inv.Total.String())
				}
			}

			pending, err := h.db.FindExpenses(h.ctx, p.ID, models.Period{Start: jan(1), End: jan(31)}, database.ExpenseFilter{})
			require.NoError(t, err)
			if tc.wantRetainer == OutcomeSkippedZero {
				require.Len(t, pending, 1)
				assert.Equal(t, usage.ID, pending[0].ID)
			} else {
				assert.Empty(t, pending)
			}
		})
	}
}

func TestRunAutoInvoicingReportsClaimConflict(t *testing.T) {
	db := &rivalDB{DB: database.NewMemoryDB()}
	h := newHarnessWithDB(t, db)
	p := h.project("acme", "Website")
	h.contract(p.ID, models.ContractTypeHourly, nil)
	h.hourlyScenario(p)

	report, err := h.svc.RunAutoInvoicing(h.ctx, rates("0", "0"))
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, OutcomeSkippedConflict, report.Results[0].Outcome)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	invoices, err := h.svc.ListInvoices(h.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Nil(t, invoices[0].ContractID)
}

func TestRunAutoInvoicingSkips(t *testing.T) {
	h := newHarness(t)

	idle := h.project("acme", "Idle")
	h.contract(idle.ID, models.ContractTypeHourly, nil)

	fixed := h.project("acme", "Fixed")
	h.contract(fixed.ID, models.ContractTypeFixedFee, nil)

	unknown := h.project("acme", "Barter")
	h.contract(unknown.ID, models.ContractType("BARTER"), nil)

	manual := h.project("acme", "Manual")
	h.contract(manual.ID, models.ContractTypeSubscription, func(c *models.BillingContract) { c.AutoInvoice = false })

	report, err := h.svc.RunAutoInvoicing(h.ctx, rates("0", "0"))
	require.NoError(t, err)

	assert.Equal(t, map[SweepOutcome]int{
		OutcomeSkippedZero:        1,
		OutcomeSkippedUnsupported: 2,
	}, outcomes(report))
	assert.Equal(t, 0, report.Generated)
	assert.Equal(t, 3, report.Skipped)

	invoices, err := h.svc.ListInvoices(h.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestRunAutoInvoicingUsesContractCycle(t *testing.T) {
	h := newHarness(t)
	p := h.project("acme", "Hosting")
	h.contract(p.ID, models.ContractTypeSubscription, func(c *models.BillingContract) {
		c.BillingCycle = models.BillingCycleQuarterly
	})
	retained := h.project("acme", "Support")
	h.contract(retained.ID, models.ContractTypeRetainer, func(c *models.BillingContract) {
		c.RetainerAmount = decPtr("100")
	})
	h.expense(retained.ID, jan(20), "130", models.ExpenseCategoryService, true)

	report, err := h.svc.RunAutoInvoicing(h.ctx, rates("0", "0"))
	require.NoError(t, err)
	require.Equal(t, 2, report.Generated)

	for _, r := range report.Results {
		switch r.ProjectID {
		case p.ID:
			assert.Equal(t, "500", r.Total.String())
			assert.Equal(t, models.ContractTypeSubscription, r.ContractType)
		case retained.ID:
			assert.Equal(t, "30", r.Total.String())
		}
	}

	invoices, err := h.svc.ListInvoices(h.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), invoices[0].PeriodStart)
}

func TestRunAutoInvoicingRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	h := newHarness(t, WithMetrics(metrics.NewSweepMetrics(registry)))

	p := h.project("acme", "Website")
	h.contract(p.ID, models.ContractTypeHourly, nil)
	h.hourlyScenario(p)
	idle := h.project("acme", "Idle")
	h.contract(idle.ID, models.ContractTypeHourly, nil)
	barter := h.project("acme", "Barter")
	h.contract(barter.ID, models.ContractType("BARTER"), nil)

	_, err := h.svc.RunAutoInvoicing(h.ctx, rates("10", "0"))
	require.NoError(t, err)

	expected := `
# HELP billing_sweep_outcomes_total Per-contract sweep outcomes.
# TYPE billing_sweep_outcomes_total counter
billing_sweep_outcomes_total{contract_type="HOURLY",outcome="generated"} 1
billing_sweep_outcomes_total{contract_type="HOURLY",outcome="skipped_zero"} 1
billing_sweep_outcomes_total{contract_type="UNKNOWN",outcome="skipped_unsupported"} 1
# HELP billing_sweep_runs_total Auto-invoice sweeps started.
# TYPE billing_sweep_runs_total counter
billing_sweep_runs_total 1
# HELP billing_sweep_invoiced_amount_total Sum of invoice totals raised by the sweep, by currency.
# TYPE billing_sweep_invoiced_amount_total counter
billing_sweep_invoiced_amount_total{currency="USD"} 1155
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"billing_sweep_outcomes_total", "billing_sweep_runs_total", "billing_sweep_invoiced_amount_total"))
}

func TestWatchAutoInvoicingStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	p := h.project("acme", "Website")
	h.contract(p.ID, models.ContractTypeHourly, nil)
	h.hourlyScenario(p)

	ctx, cancel := context.WithCancel(h.ctx)
	var reports []*SweepReport
	err := h.svc.WatchAutoInvoicing(ctx, rates("0", "0"), time.Hour, func(r *SweepReport) {
		reports = append(reports, r)
		cancel()
	})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Generated)

	assert.Error(t, h.svc.WatchAutoInvoicing(h.ctx, rates("0", "0"), 0, nil))
}
