package services

import (
	"testing"
	"time"

	"github.com/academy-education/classraum-sub009/internal/models"
)

func TestClassifyPlanChange(t *testing.T) {
	tests := []struct {
		name      string
		oldAmount int64
		newAmount int64
		want      PlanChangeKind
	}{
		{"upgrade", 50000, 90000, PlanChangeUpgrade},
		{"downgrade", 90000, 50000, PlanChangeDowngrade},
		{"same price", 50000, 50000, PlanChangeNone},
		{"from free", 0, 50000, PlanChangeUpgrade},
		{"to free", 50000, 0, PlanChangeDowngrade},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPlanChange(tt.oldAmount, tt.newAmount); got != tt.want {
				t.Errorf("ClassifyPlanChange(%d, %d) = %v, want %v", tt.oldAmount, tt.newAmount, got, tt.want)
			}
		})
	}
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		periodEnd time.Time
		want      int
	}{
		{"exactly 10 days", now.AddDate(0, 0, 10), 10},
		{"partial day rounds up", now.Add(36 * time.Hour), 2},
		{"period already ended", now.AddDate(0, 0, -1), 0},
		{"period ends now", now, 0},
		{"under a day", now.Add(2 * time.Hour), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysRemaining(tt.periodEnd, now); got != tt.want {
				t.Errorf("DaysRemaining() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestProratedUpgradeAmount(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		oldAmount int64
		newAmount int64
		periodEnd time.Time
		cycle     models.BillingCycle
		want      int64
	}{
		{
			name:      "basic to pro with 10 of 30 days left",
			oldAmount: 50000,
			newAmount: 90000,
			periodEnd: now.AddDate(0, 0, 10),
			cycle:     models.BillingCycleMonthly,
			want:      13333, // round(40000 * 10/30)
		},
		{
			name:      "full period remaining charges full difference",
			oldAmount: 50000,
			newAmount: 90000,
			periodEnd: now.AddDate(0, 0, 30),
			cycle:     models.BillingCycleMonthly,
			want:      40000,
		},
		{
			name:      "period over charges nothing",
			oldAmount: 50000,
			newAmount: 90000,
			periodEnd: now,
			cycle:     models.BillingCycleMonthly,
			want:      0,
		},
		{
			name:      "yearly prorates over 365 days",
			oldAmount: 600000,
			newAmount: 1080000,
			periodEnd: now.AddDate(0, 0, 100),
			cycle:     models.BillingCycleYearly,
			want:      131507, // round(480000 * 100/365)
		},
		{
			name:      "single day remaining",
			oldAmount: 50000,
			newAmount: 90000,
			periodEnd: now.AddDate(0, 0, 1),
			cycle:     models.BillingCycleMonthly,
			want:      1333, // round(40000 * 1/30)
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProratedUpgradeAmount(tt.oldAmount, tt.newAmount, tt.periodEnd, now, tt.cycle)
			if got != tt.want {
				t.Errorf("ProratedUpgradeAmount() = %d, want %d", got, tt.want)
			}
		})
	}
}
