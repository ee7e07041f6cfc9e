package tasks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
	"github.com/academy-education/classraum-sub009/internal/services"
)

// GenerateRecurringInvoicesTaskDef runs the recurring invoice generator
// from the worker, so academies that rely on the scheduled task queue get
// the same behavior as the HTTP job trigger
type GenerateRecurringInvoicesTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *GenerateRecurringInvoicesTaskDef) TaskID() string {
	return "generate_recurring_invoices"
}

// CreateTask builds a recurring ScheduledTask that fires daily
func (t *GenerateRecurringInvoicesTaskDef) CreateTask(due time.Time) (*models.ScheduledTask, error) {
	daily := "FREQ=DAILY"
	return BuildScheduledTask(t.TaskID(), map[string]interface{}{}, due, &daily, models.ScheduledTaskTypeRecurring, 3)
}

// HandleExecution runs one generator sweep for today
func (t *GenerateRecurringInvoicesTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	report, err := services.NewRecurringInvoiceService(db).Run(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"date":                   report.Date,
		"templates_found":        report.TemplatesFound,
		"templates_processed":    report.TemplatesProcessed,
		"total_invoices_created": report.TotalInvoicesCreated,
	}
	if len(report.Errors) > 0 {
		result["errors"] = report.Errors
	}
	return result, nil
}

// GenerateRecurringInvoicesTask is the singleton instance
var GenerateRecurringInvoicesTask = &GenerateRecurringInvoicesTaskDef{}

// ProcessSubscriptionRenewalsTaskDef charges auto-renew subscriptions
// whose billing period has ended, applying pending downgrades first
type ProcessSubscriptionRenewalsTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *ProcessSubscriptionRenewalsTaskDef) TaskID() string {
	return "process_subscription_renewals"
}

// CreateTask builds a recurring ScheduledTask that fires daily
func (t *ProcessSubscriptionRenewalsTaskDef) CreateTask(due time.Time) (*models.ScheduledTask, error) {
	daily := "FREQ=DAILY"
	return BuildScheduledTask(t.TaskID(), map[string]interface{}{}, due, &daily, models.ScheduledTaskTypeRecurring, 3)
}

// HandleExecution runs one renewal sweep
func (t *ProcessSubscriptionRenewalsTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	subscriptions := services.NewSubscriptionService(db, services.NewMidtransService())

	report, err := subscriptions.ProcessRenewals(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"checked":  report.Checked,
		"renewed":  report.Renewed,
		"past_due": report.PastDue,
		"canceled": report.Canceled,
	}
	if len(report.Errors) > 0 {
		result["errors"] = report.Errors
	}
	return result, nil
}

// ProcessSubscriptionRenewalsTask is the singleton instance
var ProcessSubscriptionRenewalsTask = &ProcessSubscriptionRenewalsTaskDef{}
