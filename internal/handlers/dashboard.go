package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
	"github.com/academy-education/classraum-sub009/internal/services"
)

// DashboardHandler serves the academy billing summary
type DashboardHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(db *gorm.DB, cache *services.RedisCache) *DashboardHandler {
	return &DashboardHandler{db: db, cache: cache}
}

// BillingSummary aggregates the billing state of one academy
type BillingSummary struct {
	AcademyID       uint                      `json:"academy_id"`
	Tier            models.PlanTier           `json:"tier"`
	Status          models.SubscriptionStatus `json:"subscription_status"`
	PeriodEnd       *time.Time                `json:"current_period_end,omitempty"`
	ActiveStudents  int64                     `json:"active_students"`
	ActiveTemplates int64                     `json:"active_templates"`
	PendingInvoices int64                     `json:"pending_invoices"`
	PendingAmount   int64                     `json:"pending_amount"`
	PaidThisMonth   int64                     `json:"paid_this_month"`
	GeneratedAt     time.Time                 `json:"generated_at"`
}

const billingSummaryTTL = 60 * time.Second

func billingSummaryCachePrefix(academyID uint) string {
	return fmt.Sprintf("billing:summary:%d", academyID)
}

// GetBillingSummary returns a cached billing summary for an academy
func (h *DashboardHandler) GetBillingSummary(c echo.Context) error {
	academyID64, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid academy ID")
	}
	academyID := uint(academyID64)

	ctx := c.Request().Context()
	key := billingSummaryCachePrefix(academyID)

	var summary BillingSummary
	if h.cache != nil {
		summary, err = services.GetOrSet(h.cache, ctx, key, billingSummaryTTL, func() (BillingSummary, error) {
			return h.buildSummary(academyID)
		})
	} else {
		summary, err = h.buildSummary(academyID)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to build billing summary")
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *DashboardHandler) buildSummary(academyID uint) (BillingSummary, error) {
	summary := BillingSummary{
		AcademyID:   academyID,
		Tier:        models.PlanTierFree,
		GeneratedAt: time.Now(),
	}

	var sub models.Subscription
	err := h.db.Where("academy_id = ?", academyID).First(&sub).Error
	if err == nil {
		summary.Tier = sub.Tier
		summary.Status = sub.Status
		summary.PeriodEnd = &sub.CurrentPeriodEnd
	} else if err != gorm.ErrRecordNotFound {
		return summary, err
	}

	if err := h.db.Model(&models.Student{}).
		Where("academy_id = ? AND status = ?", academyID, models.StudentStatusActive).
		Count(&summary.ActiveStudents).Error; err != nil {
		return summary, err
	}
	if err := h.db.Model(&models.RecurringPaymentTemplate{}).
		Where("academy_id = ? AND is_active = ?", academyID, true).
		Count(&summary.ActiveTemplates).Error; err != nil {
		return summary, err
	}
	if err := h.db.Model(&models.Invoice{}).
		Where("academy_id = ? AND status = ?", academyID, models.InvoiceStatusPending).
		Count(&summary.PendingInvoices).Error; err != nil {
		return summary, err
	}

	var pendingAmount struct{ Total int64 }
	if err := h.db.Model(&models.Invoice{}).
		Select("COALESCE(SUM(final_amount), 0) as total").
		Where("academy_id = ? AND status = ?", academyID, models.InvoiceStatusPending).
		Scan(&pendingAmount).Error; err != nil {
		return summary, err
	}
	summary.PendingAmount = pendingAmount.Total

	monthStart := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.Local)
	var paidAmount struct{ Total int64 }
	if err := h.db.Model(&models.Invoice{}).
		Select("COALESCE(SUM(final_amount), 0) as total").
		Where("academy_id = ? AND status = ? AND paid_at >= ?", academyID, models.InvoiceStatusPaid, monthStart).
		Scan(&paidAmount).Error; err != nil {
		return summary, err
	}
	summary.PaidThisMonth = paidAmount.Total

	return summary, nil
}
