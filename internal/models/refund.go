package models

import (
	"time"

	"gorm.io/gorm"
)

// Refund records a refund issued against a paid invoice
type Refund struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	InvoiceID  uint           `gorm:"index" json:"invoice_id"`
	AcademyID  uint           `gorm:"index" json:"academy_id"`
	Amount     int64          `json:"amount"`
	Gateway    PaymentGateway `gorm:"type:varchar(50)" json:"gateway"`
	Reason     string         `gorm:"type:varchar(255)" json:"reason"`
	RefundDate time.Time      `json:"refund_date"`

	// Relationships
	Invoice Invoice `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	Academy Academy `gorm:"foreignKey:AcademyID" json:"academy,omitempty"`
}
