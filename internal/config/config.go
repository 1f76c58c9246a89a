package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL    string
	DatabaseDriver string
	LogLevel       string

	Currency           string
	PaymentTermsDays   int
	TaxRate            decimal.Decimal
	DiscountRate       decimal.Decimal
	InvoiceNumberTmpl  string
	SweepWorkers       int
	SweepNodeID        int64
	StoreRetryMaxTries uint

	BillingBank          string
	BillingAccountName   string
	BillingAccountNumber string
	BillingBSB           string
}

func Load(dbConn, dbDriver string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if dbConn == "" {
		dbConn = getEnv("DATABASE_URL", "./billing.db")
	}

	if dbDriver == "" {
		dbDriver = getEnv("DATABASE_DRIVER", "sqlite3")
	}

	taxRate, err := getEnvDecimal("BILLING_TAX_RATE", decimal.Zero)
	if err != nil {
		return nil, err
	}
	discountRate, err := getEnvDecimal("BILLING_DISCOUNT_RATE", decimal.Zero)
	if err != nil {
		return nil, err
	}
	terms, err := getEnvInt("BILLING_PAYMENT_TERMS_DAYS", 30)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("SWEEP_WORKERS", 4)
	if err != nil {
		return nil, err
	}
	nodeID, err := getEnvInt("SWEEP_NODE_ID", 1)
	if err != nil {
		return nil, err
	}
	maxTries, err := getEnvInt("STORE_RETRY_MAX_TRIES", 3)
	if err != nil {
		return nil, err
	}
	if maxTries < 1 {
		maxTries = 1
	}

	cfg := &Config{
		DatabaseURL:          dbConn,
		DatabaseDriver:       dbDriver,
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		Currency:             strings.ToUpper(getEnv("BILLING_CURRENCY", "USD")),
		PaymentTermsDays:     terms,
		TaxRate:              taxRate,
		DiscountRate:         discountRate,
		InvoiceNumberTmpl:    getEnv("INVOICE_NUMBER_TEMPLATE", "INV-{YYYY}{MM}{DD}-{SEQ6}"),
		SweepWorkers:         workers,
		SweepNodeID:          int64(nodeID),
		StoreRetryMaxTries:   uint(maxTries),
		BillingBank:          getEnv("BILLING_BANK", ""),
		BillingAccountName:   getEnv("BILLING_ACCOUNT_NAME", ""),
		BillingAccountNumber: getEnv("BILLING_ACCOUNT_NUMBER", ""),
		BillingBSB:           getEnv("BILLING_BSB", ""),
	}

	return cfg, nil
}

func (c *Config) Dump() {
	fmt.Printf("Database URL: %s\n", c.DatabaseURL)
	fmt.Printf("Database Driver: %s\n", c.DatabaseDriver)
	fmt.Printf("Currency: %s\n", c.Currency)
	fmt.Printf("Payment Terms: %d days\n", c.PaymentTermsDays)
	fmt.Printf("Tax Rate: %s%%\n", c.TaxRate.String())
	fmt.Printf("Discount Rate: %s%%\n", c.DiscountRate.String())
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal for %s: %w", key, err)
	}
	return d, nil
}
