package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// ErrDowngradeNotInline is returned when a plan change would lower the
// amount: downgrades are never charged in place, callers must go through
// the pending-change flow and apply it at renewal.
var ErrDowngradeNotInline = errors.New("downgrades are applied at renewal, use the downgrade endpoint")

// ErrNoPlanChange is returned when the requested tier prices the same as
// the current one.
var ErrNoPlanChange = errors.New("requested plan matches the current plan")

type SubscriptionService struct {
	db             *gorm.DB
	midtransClient *MidtransService
}

func NewSubscriptionService(db *gorm.DB, midtransClient *MidtransService) *SubscriptionService {
	return &SubscriptionService{db: db, midtransClient: midtransClient}
}

// CheckoutResult holds a gateway checkout handed back to the client
type CheckoutResult struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	IsExisting  bool   `json:"is_existing"`
}

// Subscribe starts the initial subscription payment for an academy. The
// subscription itself is activated by the webhook once the gateway
// confirms payment; free tiers activate immediately without a charge.
func (s *SubscriptionService) Subscribe(ctx context.Context, academy *models.Academy, tier models.PlanTier, cycle models.BillingCycle, callbackURL string) (*CheckoutResult, error) {
	if !models.ValidPlanTier(tier) {
		return nil, fmt.Errorf("unknown plan tier %q", tier)
	}

	var existing models.Subscription
	err := s.db.WithContext(ctx).Where("academy_id = ?", academy.ID).First(&existing).Error
	if err == nil && existing.Status == models.SubscriptionStatusActive && existing.Tier == tier {
		return nil, fmt.Errorf("academy already has an active %s subscription", tier)
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}

	now := time.Now()
	amount := models.AmountForCycle(tier, cycle)

	if amount == 0 {
		if err := s.activate(ctx, academy.ID, tier, cycle, "", now); err != nil {
			return nil, err
		}
		return &CheckoutResult{}, nil
	}

	// Reuse a still-pending checkout if one exists, unless the gateway
	// says it is dead
	var pending models.PaymentRecord
	err = s.db.WithContext(ctx).
		Where("academy_id = ? AND entity_type = ? AND verified_status IN ?",
			academy.ID, models.PaymentEntitySubscriptionInitial,
			[]string{string(GatewayStatusPending), string(GatewayStatusVirtualAccountIssue)}).
		Order("created_at desc").First(&pending).Error
	if err == nil {
		statusResp, checkErr := s.midtransClient.CheckTransaction(pending.OrderID)
		if checkErr == nil {
			verified := NormalizeTransactionStatus(statusResp.TransactionStatus, statusResp.FraudStatus, statusResp.PaymentType)
			switch verified {
			case GatewayStatusPaid:
				return nil, fmt.Errorf("subscription payment already made")
			case GatewayStatusPending, GatewayStatusVirtualAccountIssue:
				var midtransResp snap.Response
				if err := json.Unmarshal(pending.ResponseMetadata, &midtransResp); err == nil {
					return &CheckoutResult{
						OrderID:     pending.OrderID,
						Token:       midtransResp.Token,
						RedirectURL: midtransResp.RedirectURL,
						IsExisting:  true,
					}, nil
				}
				// Broken metadata, fall through to a fresh checkout
			}
		}
		pending.VerifiedStatus = string(GatewayStatusCancelled)
		s.db.WithContext(ctx).Save(&pending)
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	orderID := BuildInitialSubscriptionOrderID(academy.ID, tier, cycle, now)

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: academy.Name,
			Email: academy.ContactEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    fmt.Sprintf("plan-%s", tier),
				Name:  fmt.Sprintf("Classraum %s plan (%s)", tier, cycle),
				Price: amount,
				Qty:   1,
			},
		},
		Callbacks: &snap.Callbacks{
			Finish: callbackURL,
		},
	}

	resp, err := s.midtransClient.CreateTransaction(orderID, amount, req)
	if err != nil {
		return nil, err
	}

	reqBytes, _ := json.Marshal(req)
	respBytes, _ := json.Marshal(resp)

	record := models.PaymentRecord{
		OrderID:          orderID,
		Gateway:          models.PaymentGatewayMidtrans,
		EntityType:       models.PaymentEntitySubscriptionInitial,
		EntityID:         academy.ID,
		AcademyID:        academy.ID,
		Amount:           amount,
		VerifiedStatus:   string(GatewayStatusPending),
		RequestMetadata:  reqBytes,
		ResponseMetadata: respBytes,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}

	return &CheckoutResult{
		OrderID:     orderID,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// UpgradeResult describes an in-place plan upgrade
type UpgradeResult struct {
	OrderID        string          `json:"order_id"`
	ProratedAmount int64           `json:"prorated_amount"`
	Checkout       *CheckoutResult `json:"checkout,omitempty"`
	ChargedNow     bool            `json:"charged_now"`
}

// Upgrade applies a plan upgrade in place: the incremental difference for
// the remaining days of the current period is charged, the tier updates
// immediately, and the billing period dates stay unchanged. Downgrades and
// same-price changes return sentinel errors and must not be charged.
func (s *SubscriptionService) Upgrade(ctx context.Context, sub *models.Subscription, newTier models.PlanTier, now time.Time) (*UpgradeResult, error) {
	if !models.ValidPlanTier(newTier) {
		return nil, fmt.Errorf("unknown plan tier %q", newTier)
	}

	oldAmount := models.AmountForCycle(sub.Tier, sub.Cycle)
	newAmount := models.AmountForCycle(newTier, sub.Cycle)

	switch ClassifyPlanChange(oldAmount, newAmount) {
	case PlanChangeNone:
		return nil, ErrNoPlanChange
	case PlanChangeDowngrade:
		return nil, ErrDowngradeNotInline
	}

	prorated := ProratedUpgradeAmount(oldAmount, newAmount, sub.CurrentPeriodEnd, now, sub.Cycle)
	orderID := BuildSubscriptionOrderID(sub.ID, SubscriptionPhaseUpgrade, now)

	result := &UpgradeResult{OrderID: orderID, ProratedAmount: prorated}

	invoice := models.Invoice{
		UUID:          uuid.New().String(),
		AcademyID:     sub.AcademyID,
		Amount:        prorated,
		FinalAmount:   prorated,
		Status:        models.InvoiceStatusPending,
		DueDate:       dateOnly(now),
		TransactionID: orderID,
		PeriodStart:   &sub.CurrentPeriodStart,
		PeriodEnd:     &sub.CurrentPeriodEnd,
		TierSnapshot:  &newTier,
		CycleSnapshot: &sub.Cycle,
	}

	record := models.PaymentRecord{
		OrderID:        orderID,
		Gateway:        models.PaymentGatewayMidtrans,
		EntityType:     models.PaymentEntitySubscription,
		EntityID:       sub.ID,
		AcademyID:      sub.AcademyID,
		Amount:         prorated,
		VerifiedStatus: string(GatewayStatusPending),
	}

	if prorated > 0 {
		if sub.BillingKey != "" {
			chargeResp, err := s.midtransClient.ChargeBillingKey(orderID, prorated, sub.BillingKey)
			if err != nil {
				return nil, fmt.Errorf("upgrade charge failed: %w", err)
			}
			verified := NormalizeTransactionStatus(chargeResp.TransactionStatus, chargeResp.FraudStatus, chargeResp.PaymentType)
			record.VerifiedStatus = string(verified)
			if verified == GatewayStatusPaid {
				paidAt := now
				invoice.Status = models.InvoiceStatusPaid
				invoice.PaidAt = &paidAt
				result.ChargedNow = true
			}
			respBytes, _ := json.Marshal(chargeResp)
			record.ResponseMetadata = respBytes
		} else {
			resp, err := s.midtransClient.CreateTransaction(orderID, prorated, nil)
			if err != nil {
				return nil, err
			}
			respBytes, _ := json.Marshal(resp)
			record.ResponseMetadata = respBytes
			result.Checkout = &CheckoutResult{
				OrderID:     orderID,
				Token:       resp.Token,
				RedirectURL: resp.RedirectURL,
			}
		}
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}

	// Tier applies immediately; the period dates are intentionally untouched
	sub.Tier = newTier
	sub.MonthlyAmount = models.MonthlyAmountForTier(newTier)
	sub.PendingTier = nil
	sub.PendingCycle = nil
	if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// ScheduleDowngrade records a pending tier change that the renewal job
// applies at the end of the current period. Nothing is charged.
func (s *SubscriptionService) ScheduleDowngrade(ctx context.Context, sub *models.Subscription, newTier models.PlanTier, newCycle *models.BillingCycle) error {
	if !models.ValidPlanTier(newTier) {
		return fmt.Errorf("unknown plan tier %q", newTier)
	}

	cycle := sub.Cycle
	if newCycle != nil {
		cycle = *newCycle
	}
	oldAmount := models.AmountForCycle(sub.Tier, sub.Cycle)
	newAmount := models.AmountForCycle(newTier, cycle)
	if ClassifyPlanChange(oldAmount, newAmount) == PlanChangeUpgrade {
		return fmt.Errorf("plan change to %q is an upgrade, use the upgrade endpoint", newTier)
	}

	sub.PendingTier = &newTier
	sub.PendingCycle = newCycle
	return s.db.WithContext(ctx).Save(sub).Error
}

// Cancel turns off auto-renew. The subscription stays usable until the end
// of the paid period; the renewal job transitions it to canceled after
// that. Rows are never deleted.
func (s *SubscriptionService) Cancel(ctx context.Context, sub *models.Subscription) error {
	sub.AutoRenew = false
	if !sub.CurrentPeriodEnd.After(time.Now()) {
		sub.Status = models.SubscriptionStatusCanceled
	}
	return s.db.WithContext(ctx).Save(sub).Error
}

// ActivateFromInitialPayment is called by the webhook once a SUB_ order is
// confirmed paid. It upserts the academy's subscription row with fresh
// period bounds and mirrors the payment as a paid invoice.
func (s *SubscriptionService) ActivateFromInitialPayment(ctx context.Context, academyID uint, tier models.PlanTier, cycle models.BillingCycle, orderID string, amount int64, now time.Time) error {
	if err := s.activate(ctx, academyID, tier, cycle, "", now); err != nil {
		return err
	}

	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("academy_id = ?", academyID).First(&sub).Error; err != nil {
		return err
	}
	return s.upsertMirrorInvoice(ctx, &sub, orderID, amount, models.InvoiceStatusPaid, now)
}

// activate creates or updates the single subscription row of an academy
func (s *SubscriptionService) activate(ctx context.Context, academyID uint, tier models.PlanTier, cycle models.BillingCycle, billingKey string, now time.Time) error {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("academy_id = ?", academyID).First(&sub).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	sub.AcademyID = academyID
	sub.Tier = tier
	sub.Cycle = cycle
	sub.Status = models.SubscriptionStatusActive
	sub.MonthlyAmount = models.MonthlyAmountForTier(tier)
	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = now.Add(sub.PeriodLength())
	sub.PendingTier = nil
	sub.PendingCycle = nil
	sub.AutoRenew = true
	if billingKey != "" {
		sub.BillingKey = billingKey
	}

	return s.db.WithContext(ctx).Save(&sub).Error
}

// RenewalReport summarizes one renewal sweep
type RenewalReport struct {
	Checked  int      `json:"checked"`
	Renewed  int      `json:"renewed"`
	PastDue  int      `json:"past_due"`
	Canceled int      `json:"canceled"`
	Errors   []string `json:"errors,omitempty"`
}

// ProcessRenewals charges every auto-renew subscription whose period has
// ended, applying pending downgrades first. Subscriptions with auto-renew
// off are transitioned to canceled. Failures on one subscription do not
// abort the others.
func (s *SubscriptionService) ProcessRenewals(ctx context.Context, now time.Time) (*RenewalReport, error) {
	report := &RenewalReport{}

	var due []models.Subscription
	if err := s.db.WithContext(ctx).
		Where("status IN ? AND current_period_end <= ?",
			[]models.SubscriptionStatus{models.SubscriptionStatusActive, models.SubscriptionStatusPastDue}, now).
		Find(&due).Error; err != nil {
		return nil, fmt.Errorf("failed to load due subscriptions: %w", err)
	}
	report.Checked = len(due)

	for i := range due {
		sub := &due[i]

		if !sub.AutoRenew {
			sub.Status = models.SubscriptionStatusCanceled
			if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("subscription %d: %v", sub.ID, err))
				continue
			}
			report.Canceled++
			continue
		}

		if err := s.renewOne(ctx, sub, now); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("subscription %d: %v", sub.ID, err))
			sub.Status = models.SubscriptionStatusPastDue
			s.db.WithContext(ctx).Save(sub)
			report.PastDue++
			continue
		}
		report.Renewed++
	}

	return report, nil
}

func (s *SubscriptionService) renewOne(ctx context.Context, sub *models.Subscription, now time.Time) error {
	// A scheduled downgrade takes effect at renewal
	if sub.PendingTier != nil {
		sub.Tier = *sub.PendingTier
		if sub.PendingCycle != nil {
			sub.Cycle = *sub.PendingCycle
		}
		sub.PendingTier = nil
		sub.PendingCycle = nil
	}
	sub.MonthlyAmount = models.MonthlyAmountForTier(sub.Tier)

	amount := models.AmountForCycle(sub.Tier, sub.Cycle)
	if amount == 0 {
		s.advancePeriod(sub, now)
		sub.Status = models.SubscriptionStatusActive
		return s.db.WithContext(ctx).Save(sub).Error
	}

	if sub.BillingKey == "" {
		return fmt.Errorf("no billing key on file")
	}

	orderID := BuildSubscriptionOrderID(sub.ID, SubscriptionPhaseRenewal, now)
	chargeResp, err := s.midtransClient.ChargeBillingKey(orderID, amount, sub.BillingKey)
	if err != nil {
		return fmt.Errorf("renewal charge failed: %w", err)
	}
	verified := NormalizeTransactionStatus(chargeResp.TransactionStatus, chargeResp.FraudStatus, chargeResp.PaymentType)

	respBytes, _ := json.Marshal(chargeResp)
	record := models.PaymentRecord{
		OrderID:          orderID,
		Gateway:          models.PaymentGatewayMidtrans,
		EntityType:       models.PaymentEntitySubscription,
		EntityID:         sub.ID,
		AcademyID:        sub.AcademyID,
		Amount:           amount,
		VerifiedStatus:   string(verified),
		ResponseMetadata: respBytes,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		log.Printf("Failed to create payment record for order %s: %v", orderID, err)
	}

	switch verified {
	case GatewayStatusPaid:
		s.advancePeriod(sub, now)
		sub.Status = models.SubscriptionStatusActive
		if err := s.db.WithContext(ctx).Save(sub).Error; err != nil {
			return err
		}
		return s.upsertMirrorInvoice(ctx, sub, orderID, amount, models.InvoiceStatusPaid, now)
	case GatewayStatusFailed, GatewayStatusCancelled:
		if err := s.upsertMirrorInvoice(ctx, sub, orderID, amount, models.InvoiceStatusFailed, now); err != nil {
			log.Printf("Failed to record failed renewal invoice for order %s: %v", orderID, err)
		}
		return fmt.Errorf("gateway declined renewal charge (%s)", verified)
	default:
		// Pending charge: the webhook settles it later
		return s.upsertMirrorInvoice(ctx, sub, orderID, amount, models.InvoiceStatusPending, now)
	}
}

func (s *SubscriptionService) advancePeriod(sub *models.Subscription, now time.Time) {
	start := sub.CurrentPeriodEnd
	if start.Before(now.Add(-sub.PeriodLength())) {
		// Long-lapsed subscription: restart the period from now instead of
		// backfilling several missed periods
		start = now
	}
	sub.CurrentPeriodStart = start
	sub.CurrentPeriodEnd = start.Add(sub.PeriodLength())
}

// UpsertMirrorInvoice records a subscription-level invoice mirroring a
// gateway payment, keyed by the gateway order id so webhook redeliveries
// update rather than duplicate.
func (s *SubscriptionService) UpsertMirrorInvoice(ctx context.Context, sub *models.Subscription, orderID string, amount int64, status models.InvoiceStatus, now time.Time) error {
	return s.upsertMirrorInvoice(ctx, sub, orderID, amount, status, now)
}

func (s *SubscriptionService) upsertMirrorInvoice(ctx context.Context, sub *models.Subscription, orderID string, amount int64, status models.InvoiceStatus, now time.Time) error {
	tier := sub.Tier
	cycle := sub.Cycle

	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Where("academy_id = ? AND transaction_id = ? AND student_id IS NULL", sub.AcademyID, orderID).
		First(&invoice).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}
	if err == gorm.ErrRecordNotFound {
		invoice = models.Invoice{
			UUID:          uuid.New().String(),
			AcademyID:     sub.AcademyID,
			Amount:        amount,
			FinalAmount:   amount,
			DueDate:       dateOnly(now),
			TransactionID: orderID,
			PeriodStart:   &sub.CurrentPeriodStart,
			PeriodEnd:     &sub.CurrentPeriodEnd,
			TierSnapshot:  &tier,
			CycleSnapshot: &cycle,
		}
	}

	invoice.Status = status
	if status == models.InvoiceStatusPaid && invoice.PaidAt == nil {
		paidAt := now
		invoice.PaidAt = &paidAt
	}

	return s.db.WithContext(ctx).Save(&invoice).Error
}
