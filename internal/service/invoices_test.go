package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesses-code-adventures/billing/internal/models"
)

func TestGenerateInvoice(t *testing.T) {
	h := newHarness(t)
	p := h.project("acme", "Website")
	h.contract(p.ID, models.ContractTypeHourly, nil)
	h.hourlyScenario(p)

	cfg := rates("10", "0")
	result, err := h.svc.CalculateHourly(h.ctx, p.ID, jan(1), jan(31), cfg)
	require.NoError(t, err)

	inv, err := h.svc.GenerateInvoice(h.ctx, result, p.ID, p.ClientID, cfg)
	require.NoError(t, err)

	assert.Equal(t, "INV-20250131-000001", inv.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.True(t, inv.DueDate.Equal(testNow.Add(30*24*time.Hour)))
	assert.Equal(t, "1050", inv.Amount.String())
	assert.Equal(t, "105", inv.Tax.String())
	assert.Equal(t, "1155", inv.Total.String())
	require.Len(t, inv.LineItems, 2)
	assert.Equal(t, "Professional Services", inv.LineItems[0].Description)
	assert.Equal(t, "1000", inv.LineItems[0].Amount.String())
	assert.Equal(t, "Project Expenses", inv.LineItems[1].Description)
	assert.Equal(t, "50", inv.LineItems[1].Amount.String())

	// consumed rows are not billed again
	again, err := h.svc.CalculateHourly(h.ctx, p.ID, jan(1), jan(31), cfg)
	require.NoError(t, err)
	assert.True(t, again.Amount.IsZero())

	entries, err := h.svc.ListTimeEntries(h.ctx, p.ID)
	require.NoError(t, err)
	invoiced := 0
	for _, e := range entries {
		if e.InvoiceID != nil {
			invoiced++
			assert.Equal(t, inv.ID, *e.InvoiceID)
			assert.Equal(t, models.TimeEntryStatusInvoiced, e.Status)
		}
	}
	assert.Equal(t, 3, invoiced)
}

func TestGenerateInvoiceOmitsEmptyExpenseLine(t *testing.T) {
	h := newHarness(t)
	p := h.project("acme", "Hosting")
	h.contract(p.ID, models.ContractTypeSubscription, nil)

	result, err := h.svc.CalculateSubscription(h.ctx, p.ID, jan(1), rates("0", "0"))
	require.NoError(t, err)
	inv, err := h.svc.GenerateInvoice(h.ctx, result, p.ID, p.ClientID, rates("0", "0"))
	require.NoError(t, err)

	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, "Professional Services", inv.LineItems[0].Description)
	require.NotNil(t, inv.ContractID)
}

func TestGenerateInvoiceMarksMilestones(t *testing.T) {
	h := newHarness(t)
	p := h.project("acme", "Redesign")
	ms := h.completedMilestone(p.ID, "Design")
	model := FixedFeeModel{MilestonePayments: []MilestonePayment{{MilestoneID: ms.ID, Amount: dec("3000")}}}

	result, err := h.svc.CalculateFixedFee(h.ctx, p.ID, model, rates("0", "0"))
	require.NoError(t, err)
	_, err = h.svc.GenerateInvoice(h.ctx, result, p.ID, p.ClientID, rates("0", "0"))
	require.NoError(t, err)

	result, err = h.svc.CalculateFixedFee(h.ctx, p.ID, model, rates("0", "0"))
	require.NoError(t, err)
	assert.Empty(t, result.ReadyForInvoicing)
	assert.True(t, result.Amount.IsZero())
}

func TestInvoiceNumbersAreSequential(t *testing.T) {
	h := newHarness(t)
	p := h.project("acme", "Hosting")
	h.contract(p.ID, models.ContractTypeSubscription, nil)

	var numbers []string
	for i := 0; i < 3; i++ {
		result, err := h.svc.CalculateSubscription(h.ctx, p.ID, jan(1), rates("0", "0"))
		require.NoError(t, err)
		result.ContractID = nil
		inv, err := h.svc.GenerateInvoice(h.ctx, result, p.ID, p.ClientID, rates("0", "0"))
		require.NoError(t, err)
		numbers = append(numbers, inv.InvoiceNumber)
		h.clock.Advance(24 * time.Hour)
	}
	assert.Equal(t, []string{"INV-20250131-000001", "INV-20250201-000002", "INV-20250202-000003"}, numbers)
}

func TestUpdateInvoiceStatus(t *testing.T) {
	h := newHarness(t)
	p := h.project("acme", "Hosting")
	h.contract(p.ID, models.ContractTypeSubscription, nil)
	result, err := h.svc.CalculateSubscription(h.ctx, p.ID, jan(1), rates("0", "0"))
	require.NoError(t, err)
	inv, err := h.svc.GenerateInvoice(h.ctx, result, p.ID, p.ClientID, rates("0", "0"))
	require.NoError(t, err)

	updated, err := h.svc.UpdateInvoiceStatus(h.ctx, inv.InvoiceNumber, "sent")
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, updated.Status)

	_, err = h.svc.UpdateInvoiceStatus(h.ctx, inv.InvoiceNumber, "lost")
	assert.Error(t, err)
}

func TestFormatInvoiceNumber(t *testing.T) {
	issued := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		template string
		seq      int64
		want     string
		wantErr  bool
	}{
		{DefaultInvoiceNumberTemplate, 42, "INV-20250307-000042", false},
		{"{YY}{MM}-{SEQ}", 7, "2503-7", false},
		{"B-{SEQ3}", 1234, "B-1234", false},
		{"", 1, "", true},
		{"INV-{SEQ}", 0, "", true},
		{"INV-{NOPE}", 1, "", true},
	}
	for _, tc := range cases {
		got, err := FormatInvoiceNumber(tc.template, issued, tc.seq)
		if tc.wantErr {
			assert.Error(t, err, tc.template)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestWriteInvoicePDF(t *testing.T) {
	h := newHarness(t)
	p := h.project("acme_corp", "Website")
	h.contract(p.ID, models.ContractTypeHourly, nil)
	h.hourlyScenario(p)
	result, err := h.svc.CalculateHourly(h.ctx, p.ID, jan(1), jan(31), rates("10", "0"))
	require.NoError(t, err)
	inv, err := h.svc.GenerateInvoice(h.ctx, result, p.ID, p.ClientID, rates("10", "0"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.svc.WriteInvoicePDF(h.ctx, inv.InvoiceNumber, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	assert.Equal(t, "invoice_INV-20250131-000001.pdf", InvoicePDFFileName(inv.InvoiceNumber))
	assert.Equal(t, "Acme Corp", formatClientName("acme_corp"))
}
