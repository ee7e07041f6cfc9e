package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type PaymentGateway string

const (
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
	PaymentGatewayManual   PaymentGateway = "manual"
)

// PaymentEntityType identifies which internal entity a gateway order
// corresponds to
type PaymentEntityType string

const (
	PaymentEntityInvoice             PaymentEntityType = "invoice"
	PaymentEntitySubscription        PaymentEntityType = "subscription"
	PaymentEntitySubscriptionInitial PaymentEntityType = "subscription_initial"
)

// PaymentRecord correlates a gateway order id with an internal entity and
// tracks the last verified gateway status. It is the structured counterpart
// of the positional order-id convention; webhooks look records up here
// first and fall back to parsing the order id for legacy payments.
type PaymentRecord struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrderID    string            `gorm:"type:varchar(100);uniqueIndex" json:"order_id"`
	Gateway    PaymentGateway    `gorm:"type:varchar(50);not null" json:"gateway"`
	EntityType PaymentEntityType `gorm:"type:varchar(30);index" json:"entity_type"`
	EntityID   uint              `gorm:"index" json:"entity_id"`
	AcademyID  uint              `gorm:"index" json:"academy_id"`

	Amount int64 `json:"amount"`

	// VerifiedStatus is the canonical gateway status confirmed against the
	// gateway's own API, not the webhook body
	VerifiedStatus string `gorm:"type:varchar(40)" json:"verified_status"`

	RequestMetadata  json.RawMessage `gorm:"type:jsonb" json:"request_metadata"`
	ResponseMetadata json.RawMessage `gorm:"type:jsonb" json:"response_metadata"`
}
