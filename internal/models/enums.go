package models

import (
	"fmt"
	"strings"
)

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusOnHold    ProjectStatus = "ON_HOLD"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusCancelled ProjectStatus = "CANCELLED"
)

func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch st := ProjectStatus(strings.ToUpper(s)); st {
	case ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("invalid project status: %s", s)
	}
}

type TimeEntryStatus string

const (
	TimeEntryStatusDraft     TimeEntryStatus = "DRAFT"
	TimeEntryStatusSubmitted TimeEntryStatus = "SUBMITTED"
	TimeEntryStatusApproved  TimeEntryStatus = "APPROVED"
	TimeEntryStatusRejected  TimeEntryStatus = "REJECTED"
	TimeEntryStatusInvoiced  TimeEntryStatus = "INVOICED"
)

func ParseTimeEntryStatus(s string) (TimeEntryStatus, error) {
	switch st := TimeEntryStatus(strings.ToUpper(s)); st {
	case TimeEntryStatusDraft, TimeEntryStatusSubmitted, TimeEntryStatusApproved, TimeEntryStatusRejected, TimeEntryStatusInvoiced:
		return st, nil
	default:
		return "", fmt.Errorf("invalid time entry status: %s", s)
	}
}

type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "PENDING"
	MilestoneStatusInProgress MilestoneStatus = "IN_PROGRESS"
	MilestoneStatusCompleted  MilestoneStatus = "COMPLETED"
	MilestoneStatusCancelled  MilestoneStatus = "CANCELLED"
)

type ContractType string

const (
	ContractTypeHourly       ContractType = "HOURLY"
	ContractTypeFixedFee     ContractType = "FIXED_FEE"
	ContractTypeRetainer     ContractType = "RETAINER"
	ContractTypeSubscription ContractType = "SUBSCRIPTION"
	ContractTypeMilestone    ContractType = "MILESTONE"
	ContractTypeMixed        ContractType = "MIXED"
)

// ParseContractType reports false for types this build does not know, so
// rows written by newer deployments can be skipped rather than rejected.
func ParseContractType(s string) (ContractType, bool) {
	switch ct := ContractType(strings.ToUpper(s)); ct {
	case ContractTypeHourly, ContractTypeFixedFee, ContractTypeRetainer,
		ContractTypeSubscription, ContractTypeMilestone, ContractTypeMixed:
		return ct, true
	default:
		return "", false
	}
}

type BillingCycle string

const (
	BillingCycleWeekly    BillingCycle = "WEEKLY"
	BillingCycleMonthly   BillingCycle = "MONTHLY"
	BillingCycleQuarterly BillingCycle = "QUARTERLY"
	BillingCycleYearly    BillingCycle = "YEARLY"
)

// ParseBillingCycle accepts ANNUALLY as an alias of YEARLY. Unknown values
// are returned as-is; period resolution falls back to a trailing 30 days.
func ParseBillingCycle(s string) BillingCycle {
	switch c := strings.ToUpper(strings.TrimSpace(s)); c {
	case "ANNUALLY":
		return BillingCycleYearly
	default:
		return BillingCycle(c)
	}
}

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch st := InvoiceStatus(strings.ToUpper(s)); st {
	case InvoiceStatusDraft, InvoiceStatusPending, InvoiceStatusSent,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("invalid invoice status: %s", s)
	}
}

// Realized reports whether the invoice counts as earned revenue.
func (s InvoiceStatus) Realized() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusPaid
}
