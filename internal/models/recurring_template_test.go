package models

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOccurrenceMonthly(t *testing.T) {
	tests := []struct {
		name       string
		dayOfMonth int
		today      time.Time
		want       time.Time
	}{
		{
			name:       "run on due day rolls to next month",
			dayOfMonth: 15,
			today:      date(2024, time.March, 15),
			want:       date(2024, time.April, 15),
		},
		{
			name:       "target day later this month",
			dayOfMonth: 20,
			today:      date(2024, time.March, 15),
			want:       date(2024, time.March, 20),
		},
		{
			name:       "target day already passed",
			dayOfMonth: 10,
			today:      date(2024, time.March, 15),
			want:       date(2024, time.April, 10),
		},
		{
			name:       "day 31 clamps in a 30-day month",
			dayOfMonth: 31,
			today:      date(2024, time.March, 31),
			want:       date(2024, time.April, 30),
		},
		{
			name:       "day 31 clamps to leap February",
			dayOfMonth: 31,
			today:      date(2024, time.January, 31),
			want:       date(2024, time.February, 29),
		},
		{
			name:       "day 30 clamps to non-leap February",
			dayOfMonth: 30,
			today:      date(2023, time.February, 1),
			want:       date(2023, time.February, 28),
		},
		{
			name:       "run on clamped due day rolls to next month",
			dayOfMonth: 31,
			today:      date(2024, time.April, 30),
			want:       date(2024, time.May, 31),
		},
		{
			name:       "day 30 run on clamped february due day rolls to march",
			dayOfMonth: 30,
			today:      date(2023, time.February, 28),
			want:       date(2023, time.March, 30),
		},
		{
			name:       "december rolls into january",
			dayOfMonth: 10,
			today:      date(2024, time.December, 20),
			want:       date(2025, time.January, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := RecurringPaymentTemplate{
				RecurrenceType: RecurrenceTypeMonthly,
				DayOfMonth:     tt.dayOfMonth,
				StartDate:      date(2020, time.January, 1),
			}
			got := tpl.NextOccurrence(tt.today)
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence(%v) = %v, want %v", tt.today, got, tt.want)
			}
		})
	}
}

func TestNextOccurrenceWeekly(t *testing.T) {
	// 2024-03-13 is a Wednesday
	wednesday := date(2024, time.March, 13)

	tests := []struct {
		name      string
		dayOfWeek int
		today     time.Time
		want      time.Time
	}{
		{
			name:      "run on target weekday rolls a full week",
			dayOfWeek: 3,
			today:     wednesday,
			want:      date(2024, time.March, 20),
		},
		{
			name:      "target weekday later this week",
			dayOfWeek: 5,
			today:     wednesday,
			want:      date(2024, time.March, 15),
		},
		{
			name:      "target weekday already passed this week",
			dayOfWeek: 1,
			today:     wednesday,
			want:      date(2024, time.March, 18),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := RecurringPaymentTemplate{
				RecurrenceType: RecurrenceTypeWeekly,
				DayOfWeek:      tt.dayOfWeek,
				StartDate:      date(2020, time.January, 1),
			}
			got := tpl.NextOccurrence(tt.today)
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence(%v) = %v, want %v", tt.today, got, tt.want)
			}
		})
	}
}

func TestNextOccurrenceBounds(t *testing.T) {
	t.Run("future start date returned verbatim", func(t *testing.T) {
		start := date(2024, time.June, 1)
		tpl := RecurringPaymentTemplate{
			RecurrenceType: RecurrenceTypeMonthly,
			DayOfMonth:     15,
			StartDate:      start,
		}
		got := tpl.NextOccurrence(date(2024, time.March, 15))
		if !got.Equal(start) {
			t.Errorf("NextOccurrence() = %v, want start date %v", got, start)
		}
	})

	t.Run("passed end date returned verbatim", func(t *testing.T) {
		end := date(2024, time.February, 1)
		tpl := RecurringPaymentTemplate{
			RecurrenceType: RecurrenceTypeMonthly,
			DayOfMonth:     15,
			StartDate:      date(2023, time.January, 1),
			EndDate:        &end,
		}
		got := tpl.NextOccurrence(date(2024, time.March, 15))
		if !got.Equal(end) {
			t.Errorf("NextOccurrence() = %v, want end date %v", got, end)
		}
	})
}

func TestChargeAmount(t *testing.T) {
	tpl := RecurringPaymentTemplate{Amount: 100000}

	noOverride := TemplateStudent{}
	if got := noOverride.ChargeAmount(tpl); got != 100000 {
		t.Errorf("ChargeAmount() = %d, want 100000", got)
	}

	override := int64(75000)
	withOverride := TemplateStudent{AmountOverride: &override}
	if got := withOverride.ChargeAmount(tpl); got != 75000 {
		t.Errorf("ChargeAmount() = %d, want 75000", got)
	}

	zero := int64(0)
	withZero := TemplateStudent{AmountOverride: &zero}
	if got := withZero.ChargeAmount(tpl); got != 0 {
		t.Errorf("ChargeAmount() with zero override = %d, want 0", got)
	}
}
