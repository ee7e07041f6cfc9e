package services

import (
	"math"
	"time"

	"github.com/academy-education/classraum-sub009/internal/models"
)

// PlanChangeKind classifies a requested plan change
type PlanChangeKind string

const (
	PlanChangeUpgrade   PlanChangeKind = "upgrade"
	PlanChangeDowngrade PlanChangeKind = "downgrade"
	PlanChangeNone      PlanChangeKind = "none"
)

// Fixed period lengths used for proration. These are deliberately NOT the
// calendar length of the billing period; the charge model treats every
// monthly period as 30 days and every yearly period as 365.
const (
	prorationDaysMonthly = 30
	prorationDaysYearly  = 365
)

// ClassifyPlanChange compares period amounts. Only upgrades are charged in
// place; downgrades go through the pending-change flow at renewal.
func ClassifyPlanChange(oldAmount, newAmount int64) PlanChangeKind {
	switch {
	case newAmount > oldAmount:
		return PlanChangeUpgrade
	case newAmount < oldAmount:
		return PlanChangeDowngrade
	default:
		return PlanChangeNone
	}
}

// DaysRemaining returns the number of charge days left in the billing
// period, rounding partial days up. Never negative.
func DaysRemaining(periodEnd, now time.Time) int {
	if !periodEnd.After(now) {
		return 0
	}
	return int(math.Ceil(periodEnd.Sub(now).Hours() / 24))
}

// ProratedUpgradeAmount computes the incremental charge for an upgrade:
// the amount difference scaled by the fraction of the period remaining,
// rounded to the nearest unit. The existing period dates stay unchanged;
// the customer pays only the difference. Callers must only invoke this for
// changes classified as upgrades.
func ProratedUpgradeAmount(oldAmount, newAmount int64, periodEnd, now time.Time, cycle models.BillingCycle) int64 {
	daysInPeriod := prorationDaysMonthly
	if cycle == models.BillingCycleYearly {
		daysInPeriod = prorationDaysYearly
	}

	remaining := DaysRemaining(periodEnd, now)
	if remaining == 0 {
		return 0
	}

	diff := float64(newAmount - oldAmount)
	return int64(math.Round(diff * float64(remaining) / float64(daysInPeriod)))
}
