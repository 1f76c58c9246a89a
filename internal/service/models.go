package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
)

// BillingModel is one arrangement inside a mixed billing run. The variants
// are HourlyModel, FixedFeeModel, RetainerModel and SubscriptionModel.
type BillingModel interface {
	ContractType() models.ContractType
	sealed()
}

// HourlyModel bills approved time and billable expenses over the run window.
type HourlyModel struct{}

// FixedFeeModel bills completed milestones that have a declared payment.
// ContractValue is the base for percentage payments.
type FixedFeeModel struct {
	ContractValue     decimal.Decimal
	MilestonePayments []MilestonePayment
}

// MilestonePayment declares what a milestone is worth. When Percentage is
// set the amount is that share of the model's ContractValue.
type MilestonePayment struct {
	MilestoneID string
	Amount      decimal.Decimal
	Percentage  *decimal.Decimal
}

// RetainerModel bills service consumption above the retainer over the run window.
type RetainerModel struct{}

// SubscriptionModel bills one recurring charge at BillingPeriod. A zero
// BillingPeriod means the end of the run window.
type SubscriptionModel struct {
	BillingPeriod time.Time
}

func (HourlyModel) ContractType() models.ContractType       { return models.ContractTypeHourly }
func (FixedFeeModel) ContractType() models.ContractType     { return models.ContractTypeFixedFee }
func (RetainerModel) ContractType() models.ContractType     { return models.ContractTypeRetainer }
func (SubscriptionModel) ContractType() models.ContractType { return models.ContractTypeSubscription }

func (HourlyModel) sealed()       {}
func (FixedFeeModel) sealed()     {}
func (RetainerModel) sealed()     {}
func (SubscriptionModel) sealed() {}
