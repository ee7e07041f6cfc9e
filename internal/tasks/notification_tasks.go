package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
	"github.com/academy-education/classraum-sub009/internal/services"
)

// NotificationRecipient represents one student (or their parent) in the
// notification payload
type NotificationRecipient struct {
	StudentID   interface{} `json:"studentId"` // Can be string or int
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	PhoneNumber string      `json:"phonenumber"`
	PaymentLink string      `json:"payment_link"`
}

// SendNotificationArgs defines the arguments for a notification task
type SendNotificationArgs struct {
	Recipients    []NotificationRecipient `json:"recipients"`
	NotifTemplate string                  `json:"notiftemplate"`
	Subject       string                  `json:"subject"`
	AcademyName   string                  `json:"academy_name"`
	InvoiceUUID   string                  `json:"invoice_uuid"`
	Amount        int64                   `json:"amount"`
	DueDate       string                  `json:"due_date"`
	AttemptCount  int                     `json:"attempt_count"`
}

// SendNotificationTaskDef encapsulates the notification task logic
type SendNotificationTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *SendNotificationTaskDef) TaskID() string {
	return "send_notification"
}

// CreateTask builds a ScheduledTask record for this task
func (t *SendNotificationTaskDef) CreateTask(args SendNotificationArgs) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, time.Now(), nil, models.ScheduledTaskTypeOneTime, 3)
}

// HandleExecution sends notifications based on each student's preference
func (t *SendNotificationTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	argsBytes, err := json.Marshal(task.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}

	var parsedArgs SendNotificationArgs
	if err := json.Unmarshal(argsBytes, &parsedArgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal args: %w", err)
	}

	total := len(parsedArgs.Recipients)
	successCount := 0
	skippedCount := 0
	failureCount := 0
	var failures []string
	var failedRecipients []NotificationRecipient

	for _, recipient := range parsedArgs.Recipients {
		var setting models.NotificationSetting
		err := db.Where("student_id = ?", recipient.StudentID).First(&setting).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// No preference recorded, skip
				log.Printf("Skipping notification for %s: no preference found", recipient.Name)
				skippedCount++
				continue
			}
			log.Printf("Error fetching preference for %s: %v", recipient.Name, err)
			failureCount++
			failures = append(failures, fmt.Sprintf("%s: db error", recipient.Name))
			failedRecipients = append(failedRecipients, recipient)
			continue
		}

		var sendErr error
		switch setting.Channel {
		case models.NotificationChannelEmail:
			sendErr = sendEmailNotif(recipient, parsedArgs)
		case models.NotificationChannelWhatsapp:
			sendErr = sendWhatsappNotif(recipient, parsedArgs, setting)
		case models.NotificationChannelNone:
			log.Printf("Notification disabled (none) for %s", recipient.Name)
			skippedCount++
			continue
		default:
			log.Printf("Unsupported notification channel %s for %s", setting.Channel, recipient.Name)
			skippedCount++
			continue
		}

		if sendErr != nil {
			log.Printf("Failed to send notification to %s via %s: %v", recipient.Name, setting.Channel, sendErr)
			failureCount++
			failures = append(failures, fmt.Sprintf("%s: %v", recipient.Name, sendErr))
			failedRecipients = append(failedRecipients, recipient)
		} else {
			successCount++
		}
	}

	result := map[string]interface{}{
		"total":   total,
		"success": successCount,
		"skipped": skippedCount,
		"failure": failureCount,
	}

	if failureCount > 0 {
		result["errors"] = failures

		attempt := parsedArgs.AttemptCount
		maxRetries := task.MaxAttempt

		if attempt < maxRetries {
			log.Printf("Partial failure: %d recipients failed. Rescheduling for attempt %d", len(failedRecipients), attempt+1)

			newArgs := parsedArgs
			newArgs.Recipients = failedRecipients
			newArgs.AttemptCount = attempt + 1

			// Re-schedule in 5 minutes
			nextRun := time.Now().Add(5 * time.Minute)

			newTask, err := BuildScheduledTask(t.TaskID(), newArgs, nextRun, nil, models.ScheduledTaskTypeOneTime, maxRetries)
			if err == nil {
				db.Create(newTask)
			} else {
				log.Printf("Failed to create retry task: %v", err)
			}
		} else {
			log.Printf("Max attempts (%d) reached for %d failed recipients.", maxRetries, len(failedRecipients))
			return result, fmt.Errorf("max attempts reached, failed to deliver to %d recipients", len(failedRecipients))
		}
	}

	return result, nil
}

// SendNotificationTask is the singleton instance of SendNotificationTaskDef
var SendNotificationTask = &SendNotificationTaskDef{}

// sendWhatsappNotif handles sending WhatsApp notifications
func sendWhatsappNotif(recipient NotificationRecipient, args SendNotificationArgs, setting models.NotificationSetting) error {
	notifTemplate := args.NotifTemplate
	if notifTemplate == "" {
		return fmt.Errorf("notiftemplate is missing")
	}

	wahaService := services.NewWahaService()

	msg := replacePlaceholders(notifTemplate, recipient, args)

	var chatId string
	if setting.WhatsappTargetType == models.WhatsappTargetTypeGroup {
		chatId = setting.WhatsappGroupID
		if chatId == "" {
			return fmt.Errorf("group ID is empty")
		}
		if !strings.HasSuffix(chatId, "@g.us") {
			chatId = chatId + "@g.us"
		}
	} else {
		// Personal
		chatId = recipient.PhoneNumber
	}

	return wahaService.SendMessage(chatId, msg)
}

// sendEmailNotif handles sending Email notifications
func sendEmailNotif(recipient NotificationRecipient, args SendNotificationArgs) error {
	notifTemplate := args.NotifTemplate
	if notifTemplate == "" {
		return fmt.Errorf("notiftemplate is missing")
	}

	emailService := services.NewEmailService()

	subject := "Notification"
	if args.Subject != "" {
		subject = args.Subject
	}

	msg := replacePlaceholders(notifTemplate, recipient, args)

	return emailService.SendEmail([]string{recipient.Email}, subject, msg)
}

func replacePlaceholders(template string, recipient NotificationRecipient, args SendNotificationArgs) string {
	res := strings.ReplaceAll(template, "$name", recipient.Name)
	res = strings.ReplaceAll(res, "$email", recipient.Email)

	res = strings.ReplaceAll(res, "$subject", args.Subject)
	res = strings.ReplaceAll(res, "$academy_name", args.AcademyName)
	res = strings.ReplaceAll(res, "$invoice_uuid", args.InvoiceUUID)
	res = strings.ReplaceAll(res, "$amount", strconv.FormatInt(args.Amount, 10))
	res = strings.ReplaceAll(res, "$due_date", args.DueDate)
	res = strings.ReplaceAll(res, "$paymentlink", recipient.PaymentLink)

	return res
}
