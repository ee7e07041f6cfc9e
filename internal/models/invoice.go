package models

import (
	"time"

	"gorm.io/gorm"
)

// InvoiceStatus represents the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusFailed    InvoiceStatus = "failed"
	InvoiceStatusRefunded  InvoiceStatus = "refunded"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is a financial record. Student invoices come from the recurring
// generator; subscription invoices mirror gateway charges for the academy
// subscription (StudentID is nil for those). Invoices are never deleted,
// refunds and cancellations are status transitions.
type Invoice struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UUID       string `gorm:"type:varchar(64);uniqueIndex" json:"uuid"`
	AcademyID  uint   `gorm:"index" json:"academy_id"`
	StudentID  *uint  `gorm:"index" json:"student_id,omitempty"`
	TemplateID *uint  `gorm:"index" json:"template_id,omitempty"`

	// Amounts are non-negative integers in minor currency units
	Amount         int64 `json:"amount"`
	DiscountAmount int64 `json:"discount_amount"`
	FinalAmount    int64 `json:"final_amount"`

	Status        InvoiceStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	DueDate       time.Time     `gorm:"index" json:"due_date"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	TransactionID string        `gorm:"type:varchar(100)" json:"transaction_id"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	// Plan snapshot for subscription invoices
	TierSnapshot  *PlanTier     `gorm:"type:varchar(20)" json:"tier_snapshot,omitempty"`
	CycleSnapshot *BillingCycle `gorm:"type:varchar(20)" json:"cycle_snapshot,omitempty"`

	// Relationships
	Academy  Academy                   `gorm:"foreignKey:AcademyID" json:"academy,omitempty"`
	Student  *Student                  `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Template *RecurringPaymentTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Refunds  []Refund                  `gorm:"foreignKey:InvoiceID" json:"refunds,omitempty"`
}
