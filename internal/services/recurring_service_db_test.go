package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/academy-education/classraum-sub009/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.SetupJoinTable(&models.Student{}, "Templates", &models.TemplateStudent{}); err != nil {
		t.Fatalf("failed to set up join table: %v", err)
	}
	err = db.AutoMigrate(
		&models.Academy{},
		&models.Student{},
		&models.RecurringPaymentTemplate{},
		&models.TemplateStudent{},
		&models.Invoice{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestStatusCountsAllDueTemplates(t *testing.T) {
	db := openTestDB(t)
	svc := NewRecurringInvoiceService(db)

	today := date(2024, time.June, 1)

	for i := 0; i < 12; i++ {
		tpl := models.RecurringPaymentTemplate{
			AcademyID:      1,
			Name:           fmt.Sprintf("Due class %d", i+1),
			Amount:         100000,
			RecurrenceType: models.RecurrenceTypeMonthly,
			DayOfMonth:     1,
			StartDate:      date(2024, time.January, 1),
			NextDueDate:    today,
			IsActive:       true,
		}
		if err := db.Create(&tpl).Error; err != nil {
			t.Fatalf("failed to create template: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		tpl := models.RecurringPaymentTemplate{
			AcademyID:      1,
			Name:           fmt.Sprintf("Upcoming class %d", i+1),
			Amount:         100000,
			RecurrenceType: models.RecurrenceTypeMonthly,
			DayOfMonth:     15,
			StartDate:      date(2024, time.January, 1),
			NextDueDate:    date(2024, time.June, 15),
			IsActive:       true,
		}
		if err := db.Create(&tpl).Error; err != nil {
			t.Fatalf("failed to create template: %v", err)
		}
	}

	report, err := svc.Status(context.Background(), today)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}

	if report.TotalActiveTemplates != 15 {
		t.Errorf("TotalActiveTemplates = %d, want 15", report.TotalActiveTemplates)
	}
	if report.TemplatesReady != 12 {
		t.Errorf("TemplatesReady = %d, want 12", report.TemplatesReady)
	}
	if len(report.DueTemplates) != 10 {
		t.Errorf("len(DueTemplates) = %d, want 10 (preview cap)", len(report.DueTemplates))
	}
	if len(report.UpcomingTemplates) != 3 {
		t.Errorf("len(UpcomingTemplates) = %d, want 3", len(report.UpcomingTemplates))
	}
	if report.DaysUntilNextRun != 0 {
		t.Errorf("DaysUntilNextRun = %d, want 0", report.DaysUntilNextRun)
	}
}

func TestRunAdvancesClampedDueDate(t *testing.T) {
	db := openTestDB(t)
	svc := NewRecurringInvoiceService(db)

	student := models.Student{AcademyID: 1, Name: "Kim Minjun", Status: models.StudentStatusActive}
	if err := db.Create(&student).Error; err != nil {
		t.Fatalf("failed to create student: %v", err)
	}
	tpl := models.RecurringPaymentTemplate{
		AcademyID:      1,
		Name:           "Month-end tuition",
		Amount:         100000,
		RecurrenceType: models.RecurrenceTypeMonthly,
		DayOfMonth:     31,
		StartDate:      date(2024, time.January, 1),
		NextDueDate:    date(2024, time.April, 30),
		IsActive:       true,
	}
	if err := db.Create(&tpl).Error; err != nil {
		t.Fatalf("failed to create template: %v", err)
	}
	enrollment := models.TemplateStudent{TemplateID: tpl.ID, StudentID: student.ID}
	if err := db.Create(&enrollment).Error; err != nil {
		t.Fatalf("failed to enroll student: %v", err)
	}

	// April 30 is the clamped due day for a day-31 template
	runDay := date(2024, time.April, 30)

	report, err := svc.Run(context.Background(), runDay)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.TotalInvoicesCreated != 1 {
		t.Fatalf("TotalInvoicesCreated = %d, want 1", report.TotalInvoicesCreated)
	}

	var got models.RecurringPaymentTemplate
	if err := db.First(&got, tpl.ID).Error; err != nil {
		t.Fatalf("failed to reload template: %v", err)
	}
	if nextDue := got.NextDueDate.Format("2006-01-02"); nextDue != "2024-05-31" {
		t.Errorf("next due date = %s, want 2024-05-31", nextDue)
	}

	// A second run on the same day must not bill the cycle again
	report, err = svc.Run(context.Background(), runDay)
	if err != nil {
		t.Fatalf("Run() error on second run: %v", err)
	}
	if report.TotalInvoicesCreated != 0 {
		t.Errorf("second run created %d invoices, want 0", report.TotalInvoicesCreated)
	}

	var invoiceCount int64
	if err := db.Model(&models.Invoice{}).Count(&invoiceCount).Error; err != nil {
		t.Fatalf("failed to count invoices: %v", err)
	}
	if invoiceCount != 1 {
		t.Errorf("invoice count = %d, want 1", invoiceCount)
	}
}
