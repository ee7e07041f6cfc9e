package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/services"
)

// BillingJobHandler exposes the scheduled billing jobs over HTTP so an
// external cron invoker can drive them
type BillingJobHandler struct {
	db             *gorm.DB
	midtransClient *services.MidtransService
}

// NewBillingJobHandler creates a new BillingJobHandler
func NewBillingJobHandler(db *gorm.DB, midtransClient *services.MidtransService) *BillingJobHandler {
	return &BillingJobHandler{db: db, midtransClient: midtransClient}
}

// RunRecurringInvoices executes one pass of the recurring invoice generator
func (h *BillingJobHandler) RunRecurringInvoices(c echo.Context) error {
	report, err := services.NewRecurringInvoiceService(h.db).Run(c.Request().Context(), time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Invoice generation failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// RecurringInvoicesStatus returns a dry-run report of what the generator
// would do today, without mutating anything
func (h *BillingJobHandler) RecurringInvoicesStatus(c echo.Context) error {
	report, err := services.NewRecurringInvoiceService(h.db).Status(c.Request().Context(), time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Status check failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// RunSubscriptionRenewals charges every auto-renew subscription whose
// period has ended
func (h *BillingJobHandler) RunSubscriptionRenewals(c echo.Context) error {
	svc := services.NewSubscriptionService(h.db, h.midtransClient)
	report, err := svc.ProcessRenewals(c.Request().Context(), time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Renewal processing failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, report)
}
