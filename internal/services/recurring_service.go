package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
)

// RecurringInvoiceService materializes invoices from recurring payment
// templates. It is triggered externally (cron-style HTTP call or the
// worker); each run is stateless and best-effort per template.
type RecurringInvoiceService struct {
	db *gorm.DB
}

func NewRecurringInvoiceService(db *gorm.DB) *RecurringInvoiceService {
	return &RecurringInvoiceService{db: db}
}

// GenerationReport summarizes one generator run
type GenerationReport struct {
	Success              bool     `json:"success"`
	Date                 string   `json:"date"`
	TemplatesFound       int      `json:"templatesFound"`
	TemplatesProcessed   int      `json:"templatesProcessed"`
	TotalInvoicesCreated int      `json:"totalInvoicesCreated"`
	Errors               []string `json:"errors,omitempty"`
}

// TemplatePreview is a short projection of a template for status reports
type TemplatePreview struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Amount      int64  `json:"amount"`
	NextDueDate string `json:"next_due_date"`
}

// StatusReport is the dry-run view of the generator: what would run today
// and when the next run has work to do. Nothing is mutated.
type StatusReport struct {
	TemplatesReady       int               `json:"templatesReady"`
	TotalActiveTemplates int               `json:"totalActiveTemplates"`
	NextExecutionDate    string            `json:"nextExecutionDate"`
	DaysUntilNextRun     int               `json:"daysUntilNextRun"`
	DueTemplates         []TemplatePreview `json:"dueTemplates"`
	UpcomingTemplates    []TemplatePreview `json:"upcomingTemplates"`
}

const dateLayout = "2006-01-02"

// Run creates invoices for every active template due on or before today
// and advances each processed template's next due date. Errors on one
// template are recorded and do not abort the others; a database error
// while fetching aborts the whole run.
func (s *RecurringInvoiceService) Run(ctx context.Context, today time.Time) (*GenerationReport, error) {
	today = dateOnly(today)
	report := &GenerationReport{
		Success: true,
		Date:    today.Format(dateLayout),
	}

	// Cheap existence check first; most invocations find nothing due
	var dueCount int64
	if err := s.db.WithContext(ctx).Model(&models.RecurringPaymentTemplate{}).
		Where("is_active = ? AND next_due_date <= ?", true, today).
		Count(&dueCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count due templates: %w", err)
	}
	if dueCount == 0 {
		return report, nil
	}

	var templates []models.RecurringPaymentTemplate
	if err := s.db.WithContext(ctx).
		Preload("Students.Student").
		Where("is_active = ? AND next_due_date <= ?", true, today).
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to load due templates: %w", err)
	}
	report.TemplatesFound = len(templates)

	for _, tpl := range templates {
		invoices, nextDue := buildInvoicesForTemplate(tpl, today)

		if len(invoices) == 0 {
			// No billable students: the template is skipped without
			// advancing next_due_date and will be re-checked every run.
			// Long-standing behavior, kept as is (see DESIGN.md).
			continue
		}

		created := 0
		failed := 0
		for i := range invoices {
			if err := s.db.WithContext(ctx).Create(&invoices[i]).Error; err != nil {
				failed++
				report.Errors = append(report.Errors,
					fmt.Sprintf("template %d: failed to create invoice for student %d: %v", tpl.ID, *invoices[i].StudentID, err))
				continue
			}
			created++
		}
		report.TotalInvoicesCreated += created

		if err := s.db.WithContext(ctx).Model(&models.RecurringPaymentTemplate{}).
			Where("id = ?", tpl.ID).
			Update("next_due_date", nextDue).Error; err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("template %d: failed to advance next due date: %v", tpl.ID, err))
			continue
		}

		if failed == 0 {
			report.TemplatesProcessed++
		}
	}

	return report, nil
}

// Status reports what the generator would do today, without mutating anything
func (s *RecurringInvoiceService) Status(ctx context.Context, today time.Time) (*StatusReport, error) {
	today = dateOnly(today)
	report := &StatusReport{}

	var totalActive int64
	if err := s.db.WithContext(ctx).Model(&models.RecurringPaymentTemplate{}).
		Where("is_active = ?", true).
		Count(&totalActive).Error; err != nil {
		return nil, fmt.Errorf("failed to count active templates: %w", err)
	}
	report.TotalActiveTemplates = int(totalActive)

	var totalReady int64
	if err := s.db.WithContext(ctx).Model(&models.RecurringPaymentTemplate{}).
		Where("is_active = ? AND next_due_date <= ?", true, today).
		Count(&totalReady).Error; err != nil {
		return nil, fmt.Errorf("failed to count due templates: %w", err)
	}
	report.TemplatesReady = int(totalReady)

	// The preview lists are capped; TemplatesReady is the full count
	var due []models.RecurringPaymentTemplate
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND next_due_date <= ?", true, today).
		Order("next_due_date asc").
		Limit(10).
		Find(&due).Error; err != nil {
		return nil, fmt.Errorf("failed to load due templates: %w", err)
	}
	report.DueTemplates = previewTemplates(due)

	var upcoming []models.RecurringPaymentTemplate
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND next_due_date > ?", true, today).
		Order("next_due_date asc").
		Limit(5).
		Find(&upcoming).Error; err != nil {
		return nil, fmt.Errorf("failed to load upcoming templates: %w", err)
	}
	report.UpcomingTemplates = previewTemplates(upcoming)

	switch {
	case len(due) > 0:
		report.NextExecutionDate = today.Format(dateLayout)
		report.DaysUntilNextRun = 0
	case len(upcoming) > 0:
		next := dateOnly(upcoming[0].NextDueDate)
		report.NextExecutionDate = next.Format(dateLayout)
		report.DaysUntilNextRun = int(next.Sub(today).Hours() / 24)
	}

	return report, nil
}

// buildInvoicesForTemplate computes the invoice rows for one due template
// and its advanced next due date. Pure; persistence happens in Run.
func buildInvoicesForTemplate(tpl models.RecurringPaymentTemplate, today time.Time) ([]models.Invoice, time.Time) {
	var invoices []models.Invoice
	for _, enrollment := range tpl.Students {
		if !enrollment.Student.IsBillable() {
			continue
		}

		studentID := enrollment.StudentID
		templateID := tpl.ID
		amount := enrollment.ChargeAmount(tpl)
		invoices = append(invoices, models.Invoice{
			UUID:        uuid.New().String(),
			AcademyID:   tpl.AcademyID,
			StudentID:   &studentID,
			TemplateID:  &templateID,
			Amount:      amount,
			FinalAmount: amount,
			Status:      models.InvoiceStatusPending,
			DueDate:     tpl.NextDueDate,
		})
	}

	return invoices, tpl.NextOccurrence(today)
}

func previewTemplates(templates []models.RecurringPaymentTemplate) []TemplatePreview {
	previews := make([]TemplatePreview, 0, len(templates))
	for _, tpl := range templates {
		previews = append(previews, TemplatePreview{
			ID:          tpl.ID,
			Name:        tpl.Name,
			Amount:      tpl.Amount,
			NextDueDate: tpl.NextDueDate.Format(dateLayout),
		})
	}
	return previews
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
