package models

import (
	"time"

	"gorm.io/gorm"
)

// Academy represents a tenant (a school) in the system
type Academy struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name         string `gorm:"type:varchar(255)" json:"name"`
	ContactEmail string `gorm:"type:varchar(255)" json:"contact_email"`
	ContactPhone string `gorm:"type:varchar(50)" json:"contact_phone"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Students     []Student     `gorm:"foreignKey:AcademyID" json:"students,omitempty"`
	Subscription *Subscription `gorm:"foreignKey:AcademyID" json:"subscription,omitempty"`
	Invoices     []Invoice     `gorm:"foreignKey:AcademyID" json:"invoices,omitempty"`
}
