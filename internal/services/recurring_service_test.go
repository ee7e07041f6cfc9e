package services

import (
	"testing"
	"time"

	"github.com/academy-education/classraum-sub009/internal/models"
)

func monthlyTemplate(amount int64, dayOfMonth int, nextDue time.Time) models.RecurringPaymentTemplate {
	return models.RecurringPaymentTemplate{
		ID:             1,
		AcademyID:      10,
		Name:           "Tuition",
		Amount:         amount,
		RecurrenceType: models.RecurrenceTypeMonthly,
		DayOfMonth:     dayOfMonth,
		StartDate:      nextDue.AddDate(-1, 0, 0),
		NextDueDate:    nextDue,
		IsActive:       true,
	}
}

func enrollment(studentID uint, status models.StudentStatus, override *int64) models.TemplateStudent {
	return models.TemplateStudent{
		TemplateID:     1,
		StudentID:      studentID,
		AmountOverride: override,
		Student: models.Student{
			ID:     studentID,
			Name:   "Student",
			Status: status,
		},
	}
}

func TestBuildInvoicesForTemplate(t *testing.T) {
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("three active students one invoice each", func(t *testing.T) {
		tpl := monthlyTemplate(100000, 15, today)
		tpl.Students = []models.TemplateStudent{
			enrollment(1, models.StudentStatusActive, nil),
			enrollment(2, models.StudentStatusActive, nil),
			enrollment(3, models.StudentStatusActive, nil),
		}

		invoices, nextDue := buildInvoicesForTemplate(tpl, today)

		if len(invoices) != 3 {
			t.Fatalf("got %d invoices, want 3", len(invoices))
		}
		for _, inv := range invoices {
			if inv.Amount != 100000 || inv.FinalAmount != 100000 {
				t.Errorf("invoice amount = %d/%d, want 100000", inv.Amount, inv.FinalAmount)
			}
			if inv.Status != models.InvoiceStatusPending {
				t.Errorf("invoice status = %v, want pending", inv.Status)
			}
			if !inv.DueDate.Equal(today) {
				t.Errorf("invoice due date = %v, want %v", inv.DueDate, today)
			}
			if inv.UUID == "" {
				t.Error("invoice UUID is empty")
			}
			if inv.StudentID == nil || inv.TemplateID == nil {
				t.Error("invoice missing student or template reference")
			}
		}

		want := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
		if !nextDue.Equal(want) {
			t.Errorf("next due = %v, want %v", nextDue, want)
		}
	})

	t.Run("amount override wins over template amount", func(t *testing.T) {
		override := int64(80000)
		tpl := monthlyTemplate(100000, 15, today)
		tpl.Students = []models.TemplateStudent{
			enrollment(1, models.StudentStatusActive, &override),
			enrollment(2, models.StudentStatusActive, nil),
		}

		invoices, _ := buildInvoicesForTemplate(tpl, today)

		if len(invoices) != 2 {
			t.Fatalf("got %d invoices, want 2", len(invoices))
		}
		if invoices[0].Amount != 80000 {
			t.Errorf("overridden amount = %d, want 80000", invoices[0].Amount)
		}
		if invoices[1].Amount != 100000 {
			t.Errorf("default amount = %d, want 100000", invoices[1].Amount)
		}
	})

	t.Run("inactive and withdrawn students skipped", func(t *testing.T) {
		tpl := monthlyTemplate(100000, 15, today)
		tpl.Students = []models.TemplateStudent{
			enrollment(1, models.StudentStatusActive, nil),
			enrollment(2, models.StudentStatusInactive, nil),
			enrollment(3, models.StudentStatusWithdrawn, nil),
		}

		invoices, _ := buildInvoicesForTemplate(tpl, today)

		if len(invoices) != 1 {
			t.Fatalf("got %d invoices, want 1", len(invoices))
		}
		if *invoices[0].StudentID != 1 {
			t.Errorf("invoiced student = %d, want 1", *invoices[0].StudentID)
		}
	})

	t.Run("no billable students produces nothing", func(t *testing.T) {
		tpl := monthlyTemplate(100000, 15, today)
		tpl.Students = []models.TemplateStudent{
			enrollment(1, models.StudentStatusInactive, nil),
		}

		invoices, _ := buildInvoicesForTemplate(tpl, today)
		if len(invoices) != 0 {
			t.Fatalf("got %d invoices, want 0", len(invoices))
		}
	})

	t.Run("advanced template is no longer due", func(t *testing.T) {
		tpl := monthlyTemplate(100000, 15, today)
		tpl.Students = []models.TemplateStudent{
			enrollment(1, models.StudentStatusActive, nil),
		}

		_, nextDue := buildInvoicesForTemplate(tpl, today)
		if !nextDue.After(today) {
			t.Fatalf("next due %v not after %v; a second run the same day would double-invoice", nextDue, today)
		}
	})
}

func TestPreviewTemplates(t *testing.T) {
	due := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	previews := previewTemplates([]models.RecurringPaymentTemplate{
		monthlyTemplate(100000, 15, due),
	})

	if len(previews) != 1 {
		t.Fatalf("got %d previews, want 1", len(previews))
	}
	if previews[0].NextDueDate != "2024-03-15" {
		t.Errorf("NextDueDate = %q, want 2024-03-15", previews[0].NextDueDate)
	}
	if previews[0].Amount != 100000 {
		t.Errorf("Amount = %d, want 100000", previews[0].Amount)
	}
}

func TestDateOnly(t *testing.T) {
	in := time.Date(2024, 3, 15, 13, 45, 12, 999, time.UTC)
	got := dateOnly(in)
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("dateOnly() = %v, want %v", got, want)
	}
}
