package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContractType(t *testing.T) {
	ct, ok := ParseContractType("retainer")
	assert.True(t, ok)
	assert.Equal(t, ContractTypeRetainer, ct)

	_, ok = ParseContractType("USAGE_BASED")
	assert.False(t, ok)
}

func TestParseBillingCycle(t *testing.T) {
	assert.Equal(t, BillingCycleYearly, ParseBillingCycle("annually"))
	assert.Equal(t, BillingCycleMonthly, ParseBillingCycle(" monthly "))
	assert.Equal(t, BillingCycle("BIWEEKLY"), ParseBillingCycle("biweekly"))
}

func TestInvoiceStatusRealized(t *testing.T) {
	assert.True(t, InvoiceStatusSent.Realized())
	assert.True(t, InvoiceStatusPaid.Realized())
	assert.False(t, InvoiceStatusDraft.Realized())
	assert.False(t, InvoiceStatusCancelled.Realized())

	_, err := ParseInvoiceStatus("void")
	assert.Error(t, err)
}

func TestConsumptionEmpty(t *testing.T) {
	assert.True(t, Consumption{}.Empty())
	assert.False(t, Consumption{ExpenseIDs: []string{"e1"}}.Empty())
}
