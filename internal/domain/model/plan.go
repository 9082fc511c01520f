package model

import (
	"time"

	"lingua-billing/internal/domain"
)

type BillingPeriod string

const (
	BillingPeriodMonthly BillingPeriod = "MONTHLY"
	BillingPeriodYearly  BillingPeriod = "YEARLY"
)

// Months returns the recurring frequency in months for the period.
func (p BillingPeriod) Months() int {
	if p == BillingPeriodYearly {
		return 12
	}
	return 1
}

// RefundWindowDays is how long after purchase a refund may be requested.
// Stored in payment metadata at initiation time and consumed later by the
// refund-eligibility check in the web application.
func (p BillingPeriod) RefundWindowDays() int {
	if p == BillingPeriodYearly {
		return 30
	}
	return 7
}

// SubscriptionPlan is read-only reference data consumed when initiating a
// subscription: prices per period plus discount hints.
type SubscriptionPlan struct {
	ID              string
	Name            string
	MonthlyPrice    int64 // minor units
	YearlyPrice     int64 // minor units
	DiscountPercent int   // marketing discount already reflected in YearlyPrice
	CreatedAt       time.Time
}

func (p *SubscriptionPlan) IsZero() bool { return p == nil || p.ID == "" }

// PriceFor returns the charge amount for the given billing period.
func (p *SubscriptionPlan) PriceFor(period BillingPeriod) (int64, error) {
	if p.IsZero() {
		return 0, domain.ErrInvalidArgument
	}
	if period == BillingPeriodYearly {
		return p.YearlyPrice, nil
	}
	return p.MonthlyPrice, nil
}
