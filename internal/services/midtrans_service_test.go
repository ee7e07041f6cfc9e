package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/academy-education/classraum-sub009/internal/models"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"payment_id":"invoice_1_1712340000","status":"PAID"}`)

	tests := []struct {
		name      string
		secret    string
		signature string
		want      bool
	}{
		{"valid signature", "topsecret", signBody("topsecret", body), true},
		{"wrong signature", "topsecret", signBody("othersecret", body), false},
		{"garbage signature", "topsecret", "deadbeef", false},
		{"no signature skips verification", "topsecret", "", true},
		{"no secret skips verification", "", signBody("topsecret", body), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MidtransService{webhookSecret: tt.secret}
			if got := svc.VerifyWebhookSignature(body, tt.signature); got != tt.want {
				t.Errorf("VerifyWebhookSignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeTransactionStatus(t *testing.T) {
	tests := []struct {
		name              string
		transactionStatus string
		fraudStatus       string
		paymentType       string
		want              GatewayStatus
	}{
		{"settlement", "settlement", "", "bank_transfer", GatewayStatusPaid},
		{"capture accepted", "capture", "accept", "credit_card", GatewayStatusPaid},
		{"capture challenged", "capture", "challenge", "credit_card", GatewayStatusPending},
		{"deny", "deny", "", "credit_card", GatewayStatusFailed},
		{"failure", "failure", "", "credit_card", GatewayStatusFailed},
		{"cancel", "cancel", "", "credit_card", GatewayStatusCancelled},
		{"expire", "expire", "", "bank_transfer", GatewayStatusCancelled},
		{"pending bank transfer", "pending", "", "bank_transfer", GatewayStatusVirtualAccountIssue},
		{"pending echannel", "pending", "", "echannel", GatewayStatusVirtualAccountIssue},
		{"pending card", "pending", "", "credit_card", GatewayStatusPending},
		{"unknown status", "authorize", "", "credit_card", GatewayStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTransactionStatus(tt.transactionStatus, tt.fraudStatus, tt.paymentType)
			if got != tt.want {
				t.Errorf("NormalizeTransactionStatus(%q, %q, %q) = %v, want %v",
					tt.transactionStatus, tt.fraudStatus, tt.paymentType, got, tt.want)
			}
		})
	}
}

func TestInvoiceStatusForGateway(t *testing.T) {
	tests := []struct {
		status GatewayStatus
		want   models.InvoiceStatus
	}{
		{GatewayStatusPaid, models.InvoiceStatusPaid},
		{GatewayStatusFailed, models.InvoiceStatusFailed},
		{GatewayStatusCancelled, models.InvoiceStatusCancelled},
		{GatewayStatusVirtualAccountIssue, models.InvoiceStatusPending},
		{GatewayStatusPending, models.InvoiceStatusPending},
	}

	for _, tt := range tests {
		if got := InvoiceStatusForGateway(tt.status); got != tt.want {
			t.Errorf("InvoiceStatusForGateway(%v) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestDecideInvoiceTransition(t *testing.T) {
	tests := []struct {
		name     string
		current  models.InvoiceStatus
		verified GatewayStatus
		want     InvoiceTransition
	}{
		{
			name:     "pending invoice is paid and notified",
			current:  models.InvoiceStatusPending,
			verified: GatewayStatusPaid,
			want:     InvoiceTransition{NewStatus: models.InvoiceStatusPaid, Notify: true},
		},
		{
			name:     "duplicate paid delivery leaves paid invoice alone",
			current:  models.InvoiceStatusPaid,
			verified: GatewayStatusPaid,
			want:     InvoiceTransition{NewStatus: models.InvoiceStatusPaid},
		},
		{
			name:     "failed delivery after settlement leaves paid invoice alone",
			current:  models.InvoiceStatusPaid,
			verified: GatewayStatusFailed,
			want:     InvoiceTransition{NewStatus: models.InvoiceStatusPaid},
		},
		{
			name:     "cancellation after settlement becomes a refund",
			current:  models.InvoiceStatusPaid,
			verified: GatewayStatusCancelled,
			want:     InvoiceTransition{NewStatus: models.InvoiceStatusRefunded, Refund: true},
		},
		{
			name:     "refunded invoice is terminal",
			current:  models.InvoiceStatusRefunded,
			verified: GatewayStatusCancelled,
			want:     InvoiceTransition{NewStatus: models.InvoiceStatusRefunded},
		},
		{
			name:     "pending invoice cancels",
			current:  models.InvoiceStatusPending,
			verified: GatewayStatusCancelled,
			want:     InvoiceTransition{NewStatus: models.InvoiceStatusCancelled},
		},
		{
			name:     "failed invoice recovers on paid",
			current:  models.InvoiceStatusFailed,
			verified: GatewayStatusPaid,
			want:     InvoiceTransition{NewStatus: models.InvoiceStatusPaid, Notify: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideInvoiceTransition(tt.current, tt.verified); got != tt.want {
				t.Errorf("DecideInvoiceTransition(%v, %v) = %+v, want %+v", tt.current, tt.verified, got, tt.want)
			}
		})
	}
}
