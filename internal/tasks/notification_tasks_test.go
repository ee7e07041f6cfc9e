package tasks

import (
	"strings"
	"testing"
)

func TestReplacePlaceholders(t *testing.T) {
	recipient := NotificationRecipient{
		Name:        "Minji Kim",
		Email:       "minji@example.com",
		PaymentLink: "https://pay.example.com/abc",
	}
	args := SendNotificationArgs{
		Subject:     "Tuition due",
		AcademyName: "Seoul Coding Academy",
		InvoiceUUID: "inv-uuid-1",
		Amount:      100000,
		DueDate:     "2024-03-15",
	}

	template := "Hi $name ($email), $amount is due on $due_date for $academy_name. Pay here: $paymentlink"
	got := replacePlaceholders(template, recipient, args)

	want := "Hi Minji Kim (minji@example.com), 100000 is due on 2024-03-15 for Seoul Coding Academy. Pay here: https://pay.example.com/abc"
	if got != want {
		t.Errorf("replacePlaceholders() = %q, want %q", got, want)
	}
}

func TestReplacePlaceholdersLeavesUnknownTokens(t *testing.T) {
	got := replacePlaceholders("hello $unknown", NotificationRecipient{}, SendNotificationArgs{})
	if !strings.Contains(got, "$unknown") {
		t.Errorf("unknown token was replaced: %q", got)
	}
}

func TestBuildScheduledTaskMarshalsArgs(t *testing.T) {
	args := SendNotificationArgs{
		Recipients: []NotificationRecipient{{Name: "A", Email: "a@example.com"}},
		Subject:    "s",
	}

	task, err := SendNotificationTask.CreateTask(args)
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.TaskName != "send_notification" {
		t.Errorf("TaskName = %q, want send_notification", task.TaskName)
	}
	if task.MaxAttempt != 3 {
		t.Errorf("MaxAttempt = %d, want 3", task.MaxAttempt)
	}
	if _, ok := task.Arguments["recipients"]; !ok {
		t.Error("arguments missing recipients key")
	}
}

func TestRegistryLookup(t *testing.T) {
	DefineTasks()

	for _, id := range []string{"log_info", "generate_recurring_invoices", "process_subscription_renewals", "send_notification"} {
		if _, found := GetHandler(id); !found {
			t.Errorf("handler %q not registered", id)
		}
	}
	if _, found := GetHandler("does_not_exist"); found {
		t.Error("unexpected handler for unknown task id")
	}
}
