package models

import (
	"time"

	"gorm.io/gorm"
)

// RecurrenceType represents how often a template charges
type RecurrenceType string

const (
	RecurrenceTypeMonthly RecurrenceType = "monthly"
	RecurrenceTypeWeekly  RecurrenceType = "weekly"
)

// RecurringPaymentTemplate defines a recurring charge an academy collects
// from its enrolled students. NextDueDate is the next date on or after
// which invoices have not yet been generated for a cycle; the generator
// advances it after each processed run.
type RecurringPaymentTemplate struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	AcademyID uint   `gorm:"index" json:"academy_id"`
	Name      string `gorm:"type:varchar(255)" json:"name"`
	Amount    int64  `json:"amount"`

	RecurrenceType RecurrenceType `gorm:"type:varchar(20)" json:"recurrence_type"`
	DayOfMonth     int            `json:"day_of_month"`
	DayOfWeek      int            `json:"day_of_week"` // 0=Sunday .. 6=Saturday

	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	NextDueDate time.Time  `gorm:"index:idx_templates_active_due,priority:2,where:deleted_at IS NULL" json:"next_due_date"`
	IsActive    bool       `gorm:"default:true;index:idx_templates_active_due,priority:1,where:deleted_at IS NULL" json:"is_active"`

	// Relationships
	Academy  Academy           `gorm:"foreignKey:AcademyID" json:"academy,omitempty"`
	Students []TemplateStudent `gorm:"foreignKey:TemplateID" json:"students,omitempty"`
}

// TemplateStudent enrolls a student into a recurring template, optionally
// overriding the template amount for that student
type TemplateStudent struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	TemplateID     uint   `gorm:"index:idx_template_students,unique,priority:1,where:deleted_at IS NULL" json:"template_id"`
	StudentID      uint   `gorm:"index:idx_template_students,unique,priority:2,where:deleted_at IS NULL" json:"student_id"`
	AmountOverride *int64 `json:"amount_override,omitempty"`

	// Relationships
	Template RecurringPaymentTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Student  Student                  `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// ChargeAmount returns the amount to invoice this student for the template
func (ts TemplateStudent) ChargeAmount(template RecurringPaymentTemplate) int64 {
	if ts.AmountOverride != nil {
		return *ts.AmountOverride
	}
	return template.Amount
}

// NextOccurrence computes the template's next due date strictly after a run
// on the given day.
//
// Monthly: the target day-of-month in the current month if it has not yet
// passed, otherwise the next month; days that do not exist in the target
// month clamp to its last day. Weekly: the next occurrence of the target
// weekday, rolling a full week when run on the target weekday itself.
// A template that has not started yet returns its start date verbatim, and
// a template whose end date has passed returns the end date.
func (t RecurringPaymentTemplate) NextOccurrence(today time.Time) time.Time {
	today = truncateToDay(today)

	if t.StartDate.After(today) {
		return truncateToDay(t.StartDate)
	}
	if t.EndDate != nil && truncateToDay(*t.EndDate).Before(today) {
		return truncateToDay(*t.EndDate)
	}

	switch t.RecurrenceType {
	case RecurrenceTypeWeekly:
		offset := (t.DayOfWeek - int(today.Weekday()) + 7) % 7
		if offset == 0 {
			offset = 7
		}
		return today.AddDate(0, 0, offset)
	default: // monthly
		year, month := today.Year(), today.Month()
		next := clampedDate(year, month, t.DayOfMonth, today.Location())
		// Clamping can land the candidate on today itself (day 31 evaluated
		// on April 30), so compare the clamped date, not the raw target day.
		if !next.After(today) {
			next = clampedDate(year, month+1, t.DayOfMonth, today.Location())
		}
		return next
	}
}

// clampedDate builds a date, clamping the day to the last day of the month
// instead of letting time.Date normalize it into the next month
func clampedDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
