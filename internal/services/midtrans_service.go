package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/academy-education/classraum-sub009/internal/models"
)

// GatewayStatus is the canonical payment status the rest of the system
// works with, independent of the gateway's own vocabulary
type GatewayStatus string

const (
	GatewayStatusPaid                GatewayStatus = "PAID"
	GatewayStatusFailed              GatewayStatus = "FAILED"
	GatewayStatusCancelled           GatewayStatus = "CANCELLED"
	GatewayStatusVirtualAccountIssue GatewayStatus = "VIRTUAL_ACCOUNT_ISSUED"
	GatewayStatusPending             GatewayStatus = "PENDING"
)

type MidtransService struct {
	SnapClient    snap.Client
	CoreClient    coreapi.Client
	webhookSecret string
}

func NewMidtransService() *MidtransService {
	serverKey := os.Getenv("MIDTRANS_SERVER_KEY")
	clientKey := os.Getenv("MIDTRANS_CLIENT_KEY")
	envStr := os.Getenv("MIDTRANS_IS_PRODUCTION")

	env := midtrans.Sandbox
	if envStr == "true" {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(serverKey, env)

	var c coreapi.Client
	c.New(serverKey, env)

	// Set Default Options
	midtrans.ServerKey = serverKey
	midtrans.ClientKey = clientKey
	midtrans.Environment = env

	return &MidtransService{
		SnapClient:    s,
		CoreClient:    c,
		webhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
	}
}

// CreateTransaction creates a Snap checkout and returns the redirect URL and token
func (s *MidtransService) CreateTransaction(orderID string, amount int64, param *snap.Request) (*snap.Response, error) {
	if param == nil {
		param = &snap.Request{
			TransactionDetails: midtrans.TransactionDetails{
				OrderID:  orderID,
				GrossAmt: amount,
			},
		}
	} else {
		if param.TransactionDetails.OrderID == "" {
			param.TransactionDetails.OrderID = orderID
		}
		if param.TransactionDetails.GrossAmt == 0 {
			param.TransactionDetails.GrossAmt = amount
		}
	}

	resp, err := s.SnapClient.CreateTransaction(param)
	if err != nil {
		return nil, fmt.Errorf("midtrans create transaction error: %v", err)
	}

	return resp, nil
}

// CheckTransaction fetches the authoritative transaction state from the
// gateway. Webhook payloads are only a signal to call this; they are never
// trusted for amount or status on their own.
func (s *MidtransService) CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, error) {
	resp, err := s.CoreClient.CheckTransaction(orderID)
	if err != nil {
		return nil, fmt.Errorf("midtrans check transaction error: %v", err)
	}
	return resp, nil
}

// CancelTransaction cancels a pending transaction at the gateway
func (s *MidtransService) CancelTransaction(orderID string) error {
	if _, err := s.CoreClient.CancelTransaction(orderID); err != nil {
		return fmt.Errorf("midtrans cancel transaction error: %v", err)
	}
	return nil
}

// ChargeBillingKey charges a saved card token directly, used for renewal
// charges where no customer interaction happens
func (s *MidtransService) ChargeBillingKey(orderID string, amount int64, billingKey string) (*coreapi.ChargeResponse, error) {
	req := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeCreditCard,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		CreditCard: &coreapi.CreditCardDetails{
			TokenID: billingKey,
		},
	}

	resp, err := s.CoreClient.ChargeTransaction(req)
	if err != nil {
		return nil, fmt.Errorf("midtrans charge error: %v", err)
	}
	return resp, nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 of the raw request
// body against the shared webhook secret. Verification is skipped (true)
// when either no signature was sent or no secret is configured.
func (s *MidtransService) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	if signature == "" || s.webhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// NormalizeTransactionStatus maps the gateway's transaction vocabulary to
// the canonical GatewayStatus set. A pending bank transfer means a virtual
// account was issued and is awaiting payment.
func NormalizeTransactionStatus(transactionStatus, fraudStatus, paymentType string) GatewayStatus {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "challenge" {
			return GatewayStatusPending
		}
		return GatewayStatusPaid
	case "settlement":
		return GatewayStatusPaid
	case "deny", "failure":
		return GatewayStatusFailed
	case "cancel", "expire":
		return GatewayStatusCancelled
	case "pending":
		if paymentType == "bank_transfer" || paymentType == "echannel" {
			return GatewayStatusVirtualAccountIssue
		}
		return GatewayStatusPending
	default:
		return GatewayStatusPending
	}
}

// InvoiceStatusForGateway maps a verified gateway status onto the invoice
// status enum. Anything unrecognized stays pending.
func InvoiceStatusForGateway(status GatewayStatus) models.InvoiceStatus {
	switch status {
	case GatewayStatusPaid:
		return models.InvoiceStatusPaid
	case GatewayStatusCancelled:
		return models.InvoiceStatusCancelled
	case GatewayStatusFailed:
		return models.InvoiceStatusFailed
	case GatewayStatusVirtualAccountIssue:
		return models.InvoiceStatusPending
	default:
		return models.InvoiceStatusPending
	}
}

// InvoiceTransition is the outcome of applying a verified gateway status to
// an invoice: the status to store and whether to notify or record a refund.
type InvoiceTransition struct {
	NewStatus models.InvoiceStatus
	Notify    bool
	Refund    bool
}

// DecideInvoiceTransition resolves what a verified gateway status does to an
// invoice in its current state. Paid invoices only move on a cancellation,
// which becomes a refund; refunded invoices never move. Duplicate deliveries
// of the same status are no-ops.
func DecideInvoiceTransition(current models.InvoiceStatus, verified GatewayStatus) InvoiceTransition {
	switch current {
	case models.InvoiceStatusRefunded:
		return InvoiceTransition{NewStatus: current}
	case models.InvoiceStatusPaid:
		if verified == GatewayStatusCancelled {
			return InvoiceTransition{NewStatus: models.InvoiceStatusRefunded, Refund: true}
		}
		return InvoiceTransition{NewStatus: current}
	}

	next := InvoiceStatusForGateway(verified)
	return InvoiceTransition{
		NewStatus: next,
		Notify:    next == models.InvoiceStatusPaid,
	}
}
