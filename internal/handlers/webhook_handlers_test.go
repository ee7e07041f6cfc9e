package handlers

import (
	"testing"
)

func TestParseWebhookPayload(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantID     string
		wantStatus string
	}{
		{
			name:       "snake_case fields",
			body:       `{"payment_id":"invoice_12_1712340000","status":"PAID"}`,
			wantID:     "invoice_12_1712340000",
			wantStatus: "PAID",
		},
		{
			name:       "camelCase fields",
			body:       `{"paymentId":"subscription_7_renewal_1712340000","transactionStatus":"settlement"}`,
			wantID:     "subscription_7_renewal_1712340000",
			wantStatus: "settlement",
		},
		{
			name:       "midtrans order_id style",
			body:       `{"order_id":"SUB_42_pro_monthly_1712340000","transaction_status":"pending"}`,
			wantID:     "SUB_42_pro_monthly_1712340000",
			wantStatus: "pending",
		},
		{
			name:       "snake_case wins when both present",
			body:       `{"payment_id":"invoice_1_1","paymentId":"invoice_2_2","status":"PAID"}`,
			wantID:     "invoice_1_1",
			wantStatus: "PAID",
		},
		{
			name:       "missing identifier",
			body:       `{"status":"PAID"}`,
			wantID:     "",
			wantStatus: "PAID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := parseWebhookPayload([]byte(tt.body))
			if err != nil {
				t.Fatalf("parseWebhookPayload() error = %v", err)
			}
			if payload.PaymentID != tt.wantID {
				t.Errorf("PaymentID = %q, want %q", payload.PaymentID, tt.wantID)
			}
			if payload.StatusHint != tt.wantStatus {
				t.Errorf("StatusHint = %q, want %q", payload.StatusHint, tt.wantStatus)
			}
		})
	}
}

func TestParseWebhookPayloadRejectsMalformed(t *testing.T) {
	for _, body := range []string{"", "not json", `["array"]`} {
		if _, err := parseWebhookPayload([]byte(body)); err == nil {
			t.Errorf("parseWebhookPayload(%q) succeeded, want error", body)
		}
	}
}

func TestCustomInvoiceID(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantID uint
		wantOK bool
	}{
		{
			name:   "snake_case numeric",
			body:   `{"payment_id":"x","custom_data":{"invoice_id":42}}`,
			wantID: 42,
			wantOK: true,
		},
		{
			name:   "camelCase string",
			body:   `{"payment_id":"x","customData":{"invoiceId":"17"}}`,
			wantID: 17,
			wantOK: true,
		},
		{
			name:   "no custom data",
			body:   `{"payment_id":"x"}`,
			wantOK: false,
		},
		{
			name:   "custom data without invoice id",
			body:   `{"payment_id":"x","custom_data":{"note":"hello"}}`,
			wantOK: false,
		},
		{
			name:   "non-numeric string ignored",
			body:   `{"payment_id":"x","custom_data":{"invoice_id":"abc"}}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := parseWebhookPayload([]byte(tt.body))
			if err != nil {
				t.Fatalf("parseWebhookPayload() error = %v", err)
			}
			id, ok := payload.customInvoiceID()
			if ok != tt.wantOK {
				t.Fatalf("customInvoiceID() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && id != tt.wantID {
				t.Errorf("customInvoiceID() = %d, want %d", id, tt.wantID)
			}
		})
	}
}

func TestParseGrossAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"150000.00", 150000},
		{"13333.00", 13333},
		{"0.00", 0},
		{"", 0},
		{"not-a-number", 0},
	}

	for _, tt := range tests {
		if got := parseGrossAmount(tt.raw); got != tt.want {
			t.Errorf("parseGrossAmount(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
