package service

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/jesses-code-adventures/billing/internal/clock"
	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/metrics"
)

// BillingService is the multi-model billing engine: period calculators, the
// mixed aggregator, invoice generation, the auto-invoicing sweep and
// profitability reporting.
type BillingService struct {
	db      database.DB
	cfg     *config.Config
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.SweepMetrics
	node    *snowflake.Node
}

type Option func(*BillingService)

func WithClock(c clock.Clock) Option {
	return func(s *BillingService) { s.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *BillingService) { s.logger = l }
}

func WithMetrics(m *metrics.SweepMetrics) Option {
	return func(s *BillingService) { s.metrics = m }
}

func NewBillingService(db database.DB, cfg *config.Config, opts ...Option) (*BillingService, error) {
	node, err := snowflake.NewNode(cfg.SweepNodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create run id node: %w", err)
	}
	c := *cfg
	if c.StoreRetryMaxTries == 0 {
		c.StoreRetryMaxTries = 1
	}
	s := &BillingService{
		db:     db,
		cfg:    &c,
		clock:  clock.System{},
		logger: zap.L(),
		node:   node,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("billing")
	return s, nil
}

// DefaultConfiguration is the run configuration derived from process config.
func (s *BillingService) DefaultConfiguration() BillingConfiguration {
	return ConfigurationFromConfig(s.cfg)
}
