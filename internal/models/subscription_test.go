package models

import (
	"testing"
	"time"
)

func TestAmountForCycle(t *testing.T) {
	tests := []struct {
		tier  PlanTier
		cycle BillingCycle
		want  int64
	}{
		{PlanTierFree, BillingCycleMonthly, 0},
		{PlanTierBasic, BillingCycleMonthly, 50000},
		{PlanTierPro, BillingCycleMonthly, 90000},
		{PlanTierEnterprise, BillingCycleMonthly, 150000},
		{PlanTierBasic, BillingCycleYearly, 600000},
		{PlanTierPro, BillingCycleYearly, 1080000},
		{PlanTier("bogus"), BillingCycleMonthly, 0},
	}

	for _, tt := range tests {
		if got := AmountForCycle(tt.tier, tt.cycle); got != tt.want {
			t.Errorf("AmountForCycle(%v, %v) = %d, want %d", tt.tier, tt.cycle, got, tt.want)
		}
	}
}

func TestValidPlanTier(t *testing.T) {
	for _, tier := range []PlanTier{PlanTierFree, PlanTierBasic, PlanTierPro, PlanTierEnterprise} {
		if !ValidPlanTier(tier) {
			t.Errorf("ValidPlanTier(%v) = false, want true", tier)
		}
	}
	if ValidPlanTier(PlanTier("platinum")) {
		t.Error("ValidPlanTier(platinum) = true, want false")
	}
}

func TestPeriodLength(t *testing.T) {
	monthly := Subscription{Cycle: BillingCycleMonthly}
	if got := monthly.PeriodLength(); got != 30*24*time.Hour {
		t.Errorf("monthly PeriodLength() = %v, want 720h", got)
	}

	yearly := Subscription{Cycle: BillingCycleYearly}
	if got := yearly.PeriodLength(); got != 365*24*time.Hour {
		t.Errorf("yearly PeriodLength() = %v, want 8760h", got)
	}
}

func TestHasPendingChange(t *testing.T) {
	sub := Subscription{}
	if sub.HasPendingChange() {
		t.Error("HasPendingChange() = true for fresh subscription")
	}

	tier := PlanTierBasic
	sub.PendingTier = &tier
	if !sub.HasPendingChange() {
		t.Error("HasPendingChange() = false with pending tier set")
	}
}
