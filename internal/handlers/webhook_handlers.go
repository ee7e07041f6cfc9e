package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
	"github.com/academy-education/classraum-sub009/internal/services"
	"github.com/academy-education/classraum-sub009/internal/tasks"
)

// WebhookHandler processes asynchronous payment callbacks from the gateway
type WebhookHandler struct {
	db             *gorm.DB
	cache          *services.RedisCache
	midtransClient *services.MidtransService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(db *gorm.DB, cache *services.RedisCache, midtransClient *services.MidtransService) *WebhookHandler {
	return &WebhookHandler{db: db, cache: cache, midtransClient: midtransClient}
}

// webhookPayload is the decoded callback body. The gateway is inconsistent
// about field naming, so the parser accepts both snake_case and camelCase.
type webhookPayload struct {
	PaymentID  string
	StatusHint string
	CustomData map[string]interface{}
}

func parseWebhookPayload(raw []byte) (*webhookPayload, error) {
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	payload := &webhookPayload{
		PaymentID:  pickString(body, "payment_id", "paymentId", "order_id", "orderId"),
		StatusHint: pickString(body, "status", "transaction_status", "transactionStatus"),
	}
	if custom, ok := body["custom_data"].(map[string]interface{}); ok {
		payload.CustomData = custom
	} else if custom, ok := body["customData"].(map[string]interface{}); ok {
		payload.CustomData = custom
	}
	return payload, nil
}

func pickString(body map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if val, ok := body[key].(string); ok && val != "" {
			return val
		}
	}
	return ""
}

// customInvoiceID extracts an invoice id from the custom-data bag, which
// some checkout flows attach instead of relying on the order id convention
func (p *webhookPayload) customInvoiceID() (uint, bool) {
	if p.CustomData == nil {
		return 0, false
	}
	for _, key := range []string{"invoice_id", "invoiceId"} {
		switch val := p.CustomData[key].(type) {
		case string:
			if id, err := strconv.ParseUint(val, 10, 32); err == nil {
				return uint(id), true
			}
		case float64:
			return uint(val), true
		}
	}
	return 0, false
}

// HandlePaymentCallback receives a gateway callback, re-verifies the payment
// against the gateway API and applies the result to the matching invoice or
// subscription. The payload itself is only a signal to re-check; amount and
// status always come from the verification call.
func (h *WebhookHandler) HandlePaymentCallback(c echo.Context) error {
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	signature := c.Request().Header.Get("webhook-signature")
	if !h.midtransClient.VerifyWebhookSignature(rawBody, signature) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook signature")
	}

	payload, err := parseWebhookPayload(rawBody)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if payload.PaymentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing payment identifier")
	}

	// Audit trail first, regardless of how processing goes
	history := models.PaymentCallbackHistory{
		PaymentGateway: models.PaymentGatewayMidtrans,
		OrderID:        payload.PaymentID,
		Metadata:       json.RawMessage(rawBody),
	}
	if err := h.db.Create(&history).Error; err != nil {
		log.Printf("Failed to record callback history for %s: %v", payload.PaymentID, err)
	}

	// The gateway delivers at-least-once; a short lock per (order, status)
	// collapses concurrent duplicate deliveries
	if h.cache != nil {
		lockKey := "webhook:lock:" + payload.PaymentID + ":" + payload.StatusHint
		acquired, err := h.cache.SetNX(c.Request().Context(), lockKey, 1, time.Minute)
		if err == nil && !acquired {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"success": true,
				"status":  "already_processing",
			})
		}
	}

	// Authoritative re-verification
	txStatus, err := h.midtransClient.CheckTransaction(payload.PaymentID)
	if err != nil {
		log.Printf("Gateway verification failed for %s: %v", payload.PaymentID, err)
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"status":  "verification_failed",
		})
	}

	verifiedStatus := services.NormalizeTransactionStatus(
		txStatus.TransactionStatus, txStatus.FraudStatus, txStatus.PaymentType)
	grossAmount := parseGrossAmount(txStatus.GrossAmount)

	entityType, entityID, parsed, err := h.resolveOrder(payload)
	if err != nil {
		return err
	}

	h.persistVerifiedStatus(payload.PaymentID, string(verifiedStatus), rawBody)

	switch entityType {
	case models.PaymentEntityInvoice:
		if err := h.applyInvoiceStatus(c, entityID, payload.PaymentID, verifiedStatus); err != nil {
			return err
		}
	case models.PaymentEntitySubscription:
		if err := h.applySubscriptionStatus(c, entityID, payload.PaymentID, verifiedStatus, grossAmount); err != nil {
			return err
		}
	case models.PaymentEntitySubscriptionInitial:
		if err := h.applyInitialSubscription(c, parsed, payload.PaymentID, verifiedStatus, grossAmount); err != nil {
			return err
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  verifiedStatus,
	})
}

// resolveOrder figures out which internal entity the order id belongs to.
// The PaymentRecord correlation table is authoritative; positional parsing
// of the order id is the fallback for legacy payments, and a custom-data
// invoice id short-circuits both.
func (h *WebhookHandler) resolveOrder(payload *webhookPayload) (models.PaymentEntityType, uint, *services.ParsedOrderID, error) {
	if invoiceID, ok := payload.customInvoiceID(); ok {
		return models.PaymentEntityInvoice, invoiceID, nil, nil
	}

	parsed, parseErr := services.ParseOrderID(payload.PaymentID)

	var record models.PaymentRecord
	err := h.db.Where("order_id = ?", payload.PaymentID).First(&record).Error
	if err == nil {
		return record.EntityType, record.EntityID, parsed, nil
	}
	if err != gorm.ErrRecordNotFound {
		return "", 0, nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up payment record")
	}

	if parseErr != nil {
		return "", 0, nil, echo.NewHTTPError(http.StatusBadRequest, "Unrecognized payment identifier")
	}

	switch parsed.Kind {
	case services.OrderKindInvoice:
		return models.PaymentEntityInvoice, parsed.InvoiceID, parsed, nil
	case services.OrderKindSubscription:
		return models.PaymentEntitySubscription, parsed.SubscriptionID, parsed, nil
	default:
		return models.PaymentEntitySubscriptionInitial, parsed.AcademyID, parsed, nil
	}
}

func (h *WebhookHandler) persistVerifiedStatus(orderID, status string, rawBody []byte) {
	err := h.db.Model(&models.PaymentRecord{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"verified_status":   status,
			"response_metadata": json.RawMessage(rawBody),
		}).Error
	if err != nil {
		log.Printf("Failed to persist verified status for %s: %v", orderID, err)
	}
}

func (h *WebhookHandler) applyInvoiceStatus(c echo.Context, invoiceID uint, orderID string, status services.GatewayStatus) error {
	var invoice models.Invoice
	if err := h.db.Preload("Student").Preload("Academy").First(&invoice, invoiceID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Invoice not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch invoice")
	}

	transition := services.DecideInvoiceTransition(invoice.Status, status)
	if transition.NewStatus == invoice.Status {
		return nil
	}

	invoice.Status = transition.NewStatus
	if transition.NewStatus == models.InvoiceStatusPaid {
		now := time.Now()
		invoice.PaidAt = &now
		invoice.TransactionID = orderID
	}
	if err := h.db.Save(&invoice).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update invoice")
	}

	if transition.Refund {
		refund := models.Refund{
			InvoiceID:  invoice.ID,
			AcademyID:  invoice.AcademyID,
			Amount:     invoice.FinalAmount,
			Gateway:    models.PaymentGatewayMidtrans,
			Reason:     "Gateway cancellation after settlement",
			RefundDate: time.Now(),
		}
		if err := h.db.Create(&refund).Error; err != nil {
			log.Printf("Failed to create refund record for invoice %d: %v", invoice.ID, err)
		}
	}
	if transition.Notify {
		h.notifyPaymentCompleted(&invoice)
	}
	return nil
}

// notifyPaymentCompleted enqueues a payment-completed notification for the
// invoice's student. Best effort: a failure here never fails the webhook.
func (h *WebhookHandler) notifyPaymentCompleted(invoice *models.Invoice) {
	if invoice.StudentID == nil || invoice.Student == nil {
		return
	}

	args := tasks.SendNotificationArgs{
		Recipients: []tasks.NotificationRecipient{
			{
				StudentID:   *invoice.StudentID,
				Name:        invoice.Student.Name,
				Email:       invoice.Student.Email,
				PhoneNumber: invoice.Student.Phone,
			},
		},
		NotifTemplate: "Hi $name, your payment of $amount for $academy_name has been received. Thank you!",
		Subject:       "Payment received",
		AcademyName:   invoice.Academy.Name,
		InvoiceUUID:   invoice.UUID,
		Amount:        invoice.FinalAmount,
		DueDate:       invoice.DueDate.Format("2006-01-02"),
	}

	task, err := tasks.SendNotificationTask.CreateTask(args)
	if err != nil {
		log.Printf("Failed to build notification task for invoice %d: %v", invoice.ID, err)
		return
	}
	if err := h.db.Create(task).Error; err != nil {
		log.Printf("Failed to enqueue notification task for invoice %d: %v", invoice.ID, err)
	}
}

func (h *WebhookHandler) applySubscriptionStatus(c echo.Context, subscriptionID uint, orderID string, status services.GatewayStatus, grossAmount int64) error {
	var sub models.Subscription
	if err := h.db.First(&sub, subscriptionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Subscription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch subscription")
	}

	now := time.Now()
	switch status {
	case services.GatewayStatusPaid:
		sub.Status = models.SubscriptionStatusActive
	case services.GatewayStatusFailed:
		sub.Status = models.SubscriptionStatusPastDue
	}
	if err := h.db.Save(&sub).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update subscription")
	}

	amount := grossAmount
	if amount == 0 {
		amount = models.AmountForCycle(sub.Tier, sub.Cycle)
	}
	svc := services.NewSubscriptionService(h.db, h.midtransClient)
	invoiceStatus := services.InvoiceStatusForGateway(status)
	if err := svc.UpsertMirrorInvoice(c.Request().Context(), &sub, orderID, amount, invoiceStatus, now); err != nil {
		log.Printf("Failed to upsert subscription invoice for %s: %v", orderID, err)
	}
	return nil
}

func (h *WebhookHandler) applyInitialSubscription(c echo.Context, parsed *services.ParsedOrderID, orderID string, status services.GatewayStatus, grossAmount int64) error {
	if parsed == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unrecognized payment identifier")
	}

	var academy models.Academy
	if err := h.db.First(&academy, parsed.AcademyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Academy not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch academy")
	}

	if status != services.GatewayStatusPaid {
		// Nothing to activate; the verified status is already recorded
		return nil
	}

	amount := grossAmount
	if amount == 0 {
		amount = models.AmountForCycle(parsed.Tier, parsed.Cycle)
	}
	svc := services.NewSubscriptionService(h.db, h.midtransClient)
	if err := svc.ActivateFromInitialPayment(c.Request().Context(), parsed.AcademyID, parsed.Tier, parsed.Cycle, orderID, amount, time.Now()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to activate subscription")
	}
	return nil
}

// Gross amount comes over the wire as a decimal string ("150000.00")
func parseGrossAmount(raw string) int64 {
	if raw == "" {
		return 0
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int64(val)
}
