package service

import (
	"fmt"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
)

// PeriodForCycle returns the window an auto-invoice run covers, ending at now.
// Weekly is a trailing seven days; monthly, quarterly and yearly start at the
// calendar boundary; anything else is a trailing thirty days.
func PeriodForCycle(cycle models.BillingCycle, now time.Time) models.Period {
	var start time.Time
	switch models.ParseBillingCycle(string(cycle)) {
	case models.BillingCycleWeekly:
		start = now.AddDate(0, 0, -7)
	case models.BillingCycleMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case models.BillingCycleQuarterly:
		firstMonth := time.Month((int(now.Month())-1)/3*3 + 1)
		start = time.Date(now.Year(), firstMonth, 1, 0, 0, 0, 0, now.Location())
	case models.BillingCycleYearly:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		start = now.AddDate(0, 0, -30)
	}
	return models.Period{Start: start, End: now}
}

func newPeriod(start, end time.Time) (models.Period, error) {
	p := models.Period{Start: start, End: end}
	if !p.Valid() {
		return models.Period{}, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return p, nil
}

// ParseDate reads a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// EndOfDay returns the last instant of t's day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Add(24*time.Hour - time.Nanosecond)
}
