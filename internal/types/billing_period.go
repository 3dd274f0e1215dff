package types

import (
	"fmt"
	"time"

	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/samber/lo"
)

// BillingPeriod is the settlement cadence of a recurring contract ex MONTHLY, ANNUAL, WEEKLY, DAILY
type BillingPeriod string

const (
	BILLING_PERIOD_DAILY   BillingPeriod = "DAILY"
	BILLING_PERIOD_WEEKLY  BillingPeriod = "WEEKLY"
	BILLING_PERIOD_MONTHLY BillingPeriod = "MONTHLY"
	BILLING_PERIOD_ANNUAL  BillingPeriod = "ANNUAL"
)

func (p BillingPeriod) Validate() error {
	allowed := []BillingPeriod{
		BILLING_PERIOD_DAILY,
		BILLING_PERIOD_WEEKLY,
		BILLING_PERIOD_MONTHLY,
		BILLING_PERIOD_ANNUAL,
	}
	if !lo.Contains(allowed, p) {
		return ierr.NewError("invalid billing period").
			WithHintf("Billing period must be one of %v", allowed).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// NextSettlementDate moves from by unit periods. Month and year steps keep the
// day of month where possible and clamp to the last day otherwise, so a
// contract anchored on Jan 31 settles on Feb 28 (or 29) and then Mar 31.
func NextSettlementDate(from time.Time, unit int, period BillingPeriod) (time.Time, error) {
	if unit <= 0 {
		return from, fmt.Errorf("billing period unit must be a positive integer, got %d", unit)
	}

	switch period {
	case BILLING_PERIOD_DAILY:
		return from.AddDate(0, 0, unit), nil
	case BILLING_PERIOD_WEEKLY:
		return from.AddDate(0, 0, 7*unit), nil
	case BILLING_PERIOD_MONTHLY:
		return addMonthsClamped(from, unit), nil
	case BILLING_PERIOD_ANNUAL:
		return addMonthsClamped(from, 12*unit), nil
	default:
		return from, fmt.Errorf("invalid billing period type: %s", period)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	h, min, sec := t.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, h, min, sec, t.Nanosecond(), t.Location())
}
