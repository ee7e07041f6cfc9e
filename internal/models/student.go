package models

import (
	"time"

	"gorm.io/gorm"
)

// StudentStatus represents the enrollment status of a student
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusWithdrawn StudentStatus = "withdrawn"
)

// Student represents a student enrolled in an academy
type Student struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	AcademyID   uint          `gorm:"index" json:"academy_id"`
	Name        string        `gorm:"type:varchar(255)" json:"name"`
	Email       string        `gorm:"type:varchar(255);index" json:"email"`
	Phone       string        `gorm:"type:varchar(50)" json:"phone"`
	ParentPhone string        `gorm:"type:varchar(50)" json:"parent_phone"`
	Status      StudentStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`

	// Relationships
	Academy   Academy                    `gorm:"foreignKey:AcademyID" json:"academy,omitempty"`
	Templates []RecurringPaymentTemplate `gorm:"many2many:template_students;joinForeignKey:StudentID;joinReferences:TemplateID" json:"templates,omitempty"`
	Invoices  []Invoice                  `gorm:"foreignKey:StudentID" json:"invoices,omitempty"`
}

// IsBillable reports whether the student should receive generated invoices
func (s Student) IsBillable() bool {
	return s.Status == StudentStatusActive
}
