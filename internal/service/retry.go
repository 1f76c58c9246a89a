package service

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/jesses-code-adventures/billing/internal/database"
)

// withRetry retries op while the store reports lock contention. Any other
// error is returned at once.
func withRetry[T any](ctx context.Context, s *BillingService, op func() (T, error)) (T, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err == nil {
			return v, nil
		}
		if !database.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		s.metrics.IncStoreRetry()
		s.logger.Debug("transient store error", zap.Int("attempt", attempt), zap.Error(err))
		return v, err
	}, backoff.WithBackOff(s.newBackOff()), backoff.WithMaxTries(s.cfg.StoreRetryMaxTries))
}

func withRetryErr(ctx context.Context, s *BillingService, op func() error) error {
	_, err := withRetry(ctx, s, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

func (s *BillingService) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}
