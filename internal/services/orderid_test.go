package services

import (
	"testing"
	"time"

	"github.com/academy-education/classraum-sub009/internal/models"
)

func TestBuildAndParseOrderIDs(t *testing.T) {
	now := time.Unix(1712340000, 0)

	t.Run("initial subscription", func(t *testing.T) {
		orderID := BuildInitialSubscriptionOrderID(42, models.PlanTierPro, models.BillingCycleMonthly, now)
		if orderID != "SUB_42_pro_monthly_1712340000" {
			t.Fatalf("unexpected order id %q", orderID)
		}

		parsed, err := ParseOrderID(orderID)
		if err != nil {
			t.Fatalf("ParseOrderID() error = %v", err)
		}
		if parsed.Kind != OrderKindSubscriptionInitial {
			t.Errorf("Kind = %v, want %v", parsed.Kind, OrderKindSubscriptionInitial)
		}
		if parsed.AcademyID != 42 {
			t.Errorf("AcademyID = %d, want 42", parsed.AcademyID)
		}
		if parsed.Tier != models.PlanTierPro {
			t.Errorf("Tier = %v, want pro", parsed.Tier)
		}
		if parsed.Cycle != models.BillingCycleMonthly {
			t.Errorf("Cycle = %v, want monthly", parsed.Cycle)
		}
		if parsed.Timestamp != 1712340000 {
			t.Errorf("Timestamp = %d, want 1712340000", parsed.Timestamp)
		}
	})

	t.Run("subscription phase charge", func(t *testing.T) {
		orderID := BuildSubscriptionOrderID(7, SubscriptionPhaseUpgrade, now)
		if orderID != "subscription_7_upgrade_1712340000" {
			t.Fatalf("unexpected order id %q", orderID)
		}

		parsed, err := ParseOrderID(orderID)
		if err != nil {
			t.Fatalf("ParseOrderID() error = %v", err)
		}
		if parsed.Kind != OrderKindSubscription {
			t.Errorf("Kind = %v, want %v", parsed.Kind, OrderKindSubscription)
		}
		if parsed.SubscriptionID != 7 {
			t.Errorf("SubscriptionID = %d, want 7", parsed.SubscriptionID)
		}
		if parsed.Phase != SubscriptionPhaseUpgrade {
			t.Errorf("Phase = %q, want upgrade", parsed.Phase)
		}
	})

	t.Run("invoice", func(t *testing.T) {
		orderID := BuildInvoiceOrderID(1234, now)
		if orderID != "invoice_1234_1712340000" {
			t.Fatalf("unexpected order id %q", orderID)
		}

		parsed, err := ParseOrderID(orderID)
		if err != nil {
			t.Fatalf("ParseOrderID() error = %v", err)
		}
		if parsed.Kind != OrderKindInvoice {
			t.Errorf("Kind = %v, want %v", parsed.Kind, OrderKindInvoice)
		}
		if parsed.InvoiceID != 1234 {
			t.Errorf("InvoiceID = %d, want 1234", parsed.InvoiceID)
		}
	})
}

func TestParseOrderIDRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		orderID string
	}{
		{"empty", ""},
		{"unknown prefix", "payment-due-3-1712340000"},
		{"SUB with too few parts", "SUB_42_pro_1712340000"},
		{"SUB with non-numeric academy", "SUB_abc_pro_monthly_1712340000"},
		{"subscription with missing phase", "subscription_7_1712340000"},
		{"subscription with non-numeric id", "subscription_x_renewal_1712340000"},
		{"invoice with non-numeric id", "invoice_x_1712340000"},
		{"bare word", "settlement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseOrderID(tt.orderID); err == nil {
				t.Errorf("ParseOrderID(%q) succeeded, want error", tt.orderID)
			}
		})
	}
}

func TestParsedOrderIDEntityType(t *testing.T) {
	tests := []struct {
		kind OrderKind
		want models.PaymentEntityType
	}{
		{OrderKindSubscriptionInitial, models.PaymentEntitySubscriptionInitial},
		{OrderKindSubscription, models.PaymentEntitySubscription},
		{OrderKindInvoice, models.PaymentEntityInvoice},
	}

	for _, tt := range tests {
		p := &ParsedOrderID{Kind: tt.kind}
		if got := p.EntityType(); got != tt.want {
			t.Errorf("EntityType(%v) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
