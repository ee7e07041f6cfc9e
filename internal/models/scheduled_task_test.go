package models

import (
	"testing"
	"time"
)

func TestNextDueOneTime(t *testing.T) {
	due := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	task := ScheduledTask{TaskType: ScheduledTaskTypeOneTime, Due: due}

	if got := task.NextDue(); !got.Equal(due) {
		t.Errorf("NextDue() = %v, want %v", got, due)
	}
}

func TestNextDueRecurringDaily(t *testing.T) {
	daily := "FREQ=DAILY"
	due := time.Now().UTC().Add(-72 * time.Hour).Truncate(time.Hour)
	task := ScheduledTask{
		TaskType:          ScheduledTaskTypeRecurring,
		Due:               due,
		RecurringInterval: &daily,
	}

	next := task.NextDue()
	if next.IsZero() {
		t.Fatal("NextDue() returned zero time")
	}
	if next.Before(time.Now().Add(-24 * time.Hour)) {
		t.Errorf("NextDue() = %v, expected an occurrence near now", next)
	}
	if rem := next.Sub(due) % (24 * time.Hour); rem != 0 {
		t.Errorf("NextDue() = %v is not a whole number of days after %v", next, due)
	}
}

func TestNextDueRecurringBadRule(t *testing.T) {
	bad := "NOT A RULE"
	due := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
	task := ScheduledTask{
		TaskType:          ScheduledTaskTypeRecurring,
		Due:               due,
		RecurringInterval: &bad,
	}

	if got := task.NextDue(); !got.Equal(due) {
		t.Errorf("NextDue() with unparsable rule = %v, want fallback %v", got, due)
	}
}
