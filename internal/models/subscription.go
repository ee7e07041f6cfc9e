package models

import (
	"time"

	"gorm.io/gorm"
)

// PlanTier represents the subscription tier of an academy
type PlanTier string

const (
	PlanTierFree       PlanTier = "free"
	PlanTierBasic      PlanTier = "basic"
	PlanTierPro        PlanTier = "pro"
	PlanTierEnterprise PlanTier = "enterprise"
)

// BillingCycle represents the billing interval of a subscription
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// SubscriptionStatus represents the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// tierMonthlyAmounts is the closed pricing table, in minor currency units per month
var tierMonthlyAmounts = map[PlanTier]int64{
	PlanTierFree:       0,
	PlanTierBasic:      50000,
	PlanTierPro:        90000,
	PlanTierEnterprise: 150000,
}

// MonthlyAmountForTier returns the monthly price of a tier.
// Unknown tiers price as free.
func MonthlyAmountForTier(tier PlanTier) int64 {
	return tierMonthlyAmounts[tier]
}

// AmountForCycle returns the amount charged per billing period for a tier
func AmountForCycle(tier PlanTier, cycle BillingCycle) int64 {
	monthly := MonthlyAmountForTier(tier)
	if cycle == BillingCycleYearly {
		return monthly * 12
	}
	return monthly
}

// ValidPlanTier reports whether the given tier is part of the pricing table
func ValidPlanTier(tier PlanTier) bool {
	_, ok := tierMonthlyAmounts[tier]
	return ok
}

// Subscription represents the billing subscription of one academy.
// There is at most one row per academy; tier changes, renewals and
// cancellations update the row in place. Rows are never hard-deleted.
type Subscription struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	AcademyID uint               `gorm:"uniqueIndex" json:"academy_id"`
	Tier      PlanTier           `gorm:"type:varchar(20);default:'free'" json:"tier"`
	Cycle     BillingCycle       `gorm:"type:varchar(20);default:'monthly'" json:"cycle"`
	Status    SubscriptionStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`

	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `gorm:"index" json:"current_period_end"`

	// MonthlyAmount is the monthly rate snapshot at the time of the last charge
	MonthlyAmount int64  `json:"monthly_amount"`
	BillingKey    string `gorm:"type:varchar(255)" json:"-"`

	// Pending downgrade, applied at the next renewal
	PendingTier  *PlanTier     `gorm:"type:varchar(20)" json:"pending_tier,omitempty"`
	PendingCycle *BillingCycle `gorm:"type:varchar(20)" json:"pending_cycle,omitempty"`

	AutoRenew bool `gorm:"default:true" json:"auto_renew"`

	// Relationships
	Academy Academy `gorm:"foreignKey:AcademyID" json:"academy,omitempty"`
}

// PeriodLength returns the nominal duration of one billing period
func (s Subscription) PeriodLength() time.Duration {
	if s.Cycle == BillingCycleYearly {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// HasPendingChange reports whether a downgrade is scheduled for renewal
func (s Subscription) HasPendingChange() bool {
	return s.PendingTier != nil
}
