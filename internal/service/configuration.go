package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

const (
	defaultCurrency     = "USD"
	defaultPaymentTerms = 30
)

// BillingConfiguration holds the settings for a single billing run. Rates are
// percentages.
type BillingConfiguration struct {
	AutoInvoice  bool
	BillingCycle models.BillingCycle
	PaymentTerms int
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
	Currency     string
}

// ConfigurationFromConfig builds the default run configuration from the
// process config.
func ConfigurationFromConfig(cfg *config.Config) BillingConfiguration {
	return BillingConfiguration{
		BillingCycle: models.BillingCycleMonthly,
		PaymentTerms: cfg.PaymentTermsDays,
		TaxRate:      cfg.TaxRate,
		DiscountRate: cfg.DiscountRate,
		Currency:     cfg.Currency,
	}.withDefaults()
}

// ForContract narrows a run configuration to a contract's cycle and
// auto-invoice flag.
func (c BillingConfiguration) ForContract(contract *models.BillingContract) BillingConfiguration {
	c.AutoInvoice = contract.AutoInvoice
	if contract.BillingCycle != "" {
		c.BillingCycle = models.ParseBillingCycle(string(contract.BillingCycle))
	}
	return c
}

func (c BillingConfiguration) withDefaults() BillingConfiguration {
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.BillingCycle == "" {
		c.BillingCycle = models.BillingCycleMonthly
	}
	return c
}

func (c BillingConfiguration) Validate() error {
	if !money.ValidRate(c.TaxRate) {
		return fmt.Errorf("%w: tax rate %s is outside [0, 100]", ErrInvalidConfiguration, c.TaxRate)
	}
	if !money.ValidRate(c.DiscountRate) {
		return fmt.Errorf("%w: discount rate %s is outside [0, 100]", ErrInvalidConfiguration, c.DiscountRate)
	}
	if c.PaymentTerms < 0 {
		return fmt.Errorf("%w: payment terms must not be negative", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(c.Currency) == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidConfiguration)
	}
	return nil
}
