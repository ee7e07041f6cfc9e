package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/academy-education/classraum-sub009/internal/models"
)

// Gateway order ids double as a correlation protocol: webhook callbacks are
// mapped back to internal rows by parsing them positionally. The delimiter
// and field ordering are load-bearing and must not change:
//
//	SUB_{academyId}_{tier}_{cycle}_{timestamp}        initial subscription payment
//	subscription_{subscriptionId}_{phase}_{timestamp} recurring/upgrade charge
//	invoice_{invoiceId}_{timestamp}                   per-student invoice payment
//
// New payments additionally get a PaymentRecord row, so parsing is only the
// fallback for orders created before the correlation table existed.

// OrderKind identifies which convention an order id follows
type OrderKind string

const (
	OrderKindSubscriptionInitial OrderKind = "subscription_initial"
	OrderKindSubscription        OrderKind = "subscription"
	OrderKindInvoice             OrderKind = "invoice"
)

// Subscription charge phases
const (
	SubscriptionPhaseInitial = "initial"
	SubscriptionPhaseUpgrade = "upgrade"
	SubscriptionPhaseRenewal = "renewal"
)

// ParsedOrderID is the result of decoding a gateway order id
type ParsedOrderID struct {
	Kind OrderKind

	// Set for Kind == OrderKindSubscriptionInitial
	AcademyID uint
	Tier      models.PlanTier
	Cycle     models.BillingCycle

	// Set for Kind == OrderKindSubscription
	SubscriptionID uint
	Phase          string

	// Set for Kind == OrderKindInvoice
	InvoiceID uint

	Timestamp int64
}

// BuildInitialSubscriptionOrderID builds the order id for an academy's
// first subscription payment
func BuildInitialSubscriptionOrderID(academyID uint, tier models.PlanTier, cycle models.BillingCycle, now time.Time) string {
	return fmt.Sprintf("SUB_%d_%s_%s_%d", academyID, tier, cycle, now.Unix())
}

// BuildSubscriptionOrderID builds the order id for an upgrade or renewal
// charge on an existing subscription
func BuildSubscriptionOrderID(subscriptionID uint, phase string, now time.Time) string {
	return fmt.Sprintf("subscription_%d_%s_%d", subscriptionID, phase, now.Unix())
}

// BuildInvoiceOrderID builds the order id for a per-student invoice payment
func BuildInvoiceOrderID(invoiceID uint, now time.Time) string {
	return fmt.Sprintf("invoice_%d_%d", invoiceID, now.Unix())
}

// ParseOrderID decodes an order id following one of the supported
// conventions. Returns an error for anything it cannot positionally match.
func ParseOrderID(orderID string) (*ParsedOrderID, error) {
	parts := strings.Split(orderID, "_")

	switch {
	case parts[0] == "SUB" && len(parts) == 5:
		academyID, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid academy id in order id %q", orderID)
		}
		ts, _ := strconv.ParseInt(parts[4], 10, 64)
		return &ParsedOrderID{
			Kind:      OrderKindSubscriptionInitial,
			AcademyID: uint(academyID),
			Tier:      models.PlanTier(parts[2]),
			Cycle:     models.BillingCycle(parts[3]),
			Timestamp: ts,
		}, nil

	case parts[0] == "subscription" && len(parts) == 4:
		subID, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid subscription id in order id %q", orderID)
		}
		ts, _ := strconv.ParseInt(parts[3], 10, 64)
		return &ParsedOrderID{
			Kind:           OrderKindSubscription,
			SubscriptionID: uint(subID),
			Phase:          parts[2],
			Timestamp:      ts,
		}, nil

	case parts[0] == "invoice" && len(parts) >= 3:
		invoiceID, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid invoice id in order id %q", orderID)
		}
		ts, _ := strconv.ParseInt(parts[len(parts)-1], 10, 64)
		return &ParsedOrderID{
			Kind:      OrderKindInvoice,
			InvoiceID: uint(invoiceID),
			Timestamp: ts,
		}, nil
	}

	return nil, fmt.Errorf("unrecognized order id format: %q", orderID)
}

// EntityType maps the parsed kind onto the correlation table's entity type
func (p *ParsedOrderID) EntityType() models.PaymentEntityType {
	switch p.Kind {
	case OrderKindSubscriptionInitial:
		return models.PaymentEntitySubscriptionInitial
	case OrderKindSubscription:
		return models.PaymentEntitySubscription
	default:
		return models.PaymentEntityInvoice
	}
}
