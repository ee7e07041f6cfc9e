package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
	"github.com/academy-education/classraum-sub009/internal/services"
)

// SubscriptionHandler handles the academy subscription lifecycle endpoints
type SubscriptionHandler struct {
	db             *gorm.DB
	cache          *services.RedisCache
	midtransClient *services.MidtransService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(db *gorm.DB, cache *services.RedisCache, midtransClient *services.MidtransService) *SubscriptionHandler {
	return &SubscriptionHandler{db: db, cache: cache, midtransClient: midtransClient}
}

type subscribeRequest struct {
	Tier        models.PlanTier     `json:"tier"`
	Cycle       models.BillingCycle `json:"cycle"`
	CallbackURL string              `json:"callback_url"`
}

type planChangeRequest struct {
	Tier  models.PlanTier      `json:"tier"`
	Cycle *models.BillingCycle `json:"cycle,omitempty"`
}

func (h *SubscriptionHandler) academyFromParam(c echo.Context) (*models.Academy, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid academy ID")
	}

	var academy models.Academy
	if err := h.db.First(&academy, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Academy not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch academy")
	}
	return &academy, nil
}

func (h *SubscriptionHandler) subscriptionForAcademy(c echo.Context, academyID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := h.db.Where("academy_id = ?", academyID).First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Subscription not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch subscription")
	}
	return &sub, nil
}

// Subscribe starts a subscription checkout for an academy. Paid tiers hand
// back a gateway checkout; activation happens via the payment webhook.
func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	academy, err := h.academyFromParam(c)
	if err != nil {
		return err
	}

	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if !models.ValidPlanTier(req.Tier) {
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown plan tier")
	}
	if req.Cycle == "" {
		req.Cycle = models.BillingCycleMonthly
	}

	svc := services.NewSubscriptionService(h.db, h.midtransClient)
	result, err := svc.Subscribe(c.Request().Context(), academy, req.Tier, req.Cycle, req.CallbackURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.invalidateBillingCache(c, academy.ID)
	return c.JSON(http.StatusOK, result)
}

// Upgrade applies a plan upgrade in place, charging the prorated difference
func (h *SubscriptionHandler) Upgrade(c echo.Context) error {
	academy, err := h.academyFromParam(c)
	if err != nil {
		return err
	}
	sub, err := h.subscriptionForAcademy(c, academy.ID)
	if err != nil {
		return err
	}

	var req planChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	svc := services.NewSubscriptionService(h.db, h.midtransClient)
	result, err := svc.Upgrade(c.Request().Context(), sub, req.Tier, time.Now())
	if err != nil {
		if errors.Is(err, services.ErrDowngradeNotInline) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{
				"error":    err.Error(),
				"redirect": "/api/academies/" + c.Param("id") + "/subscription/downgrade",
			})
		}
		if errors.Is(err, services.ErrNoPlanChange) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Upgrade failed: "+err.Error())
	}

	h.invalidateBillingCache(c, academy.ID)
	return c.JSON(http.StatusOK, result)
}

// Downgrade schedules a tier downgrade for the next renewal. Nothing is
// charged and the current period is untouched.
func (h *SubscriptionHandler) Downgrade(c echo.Context) error {
	academy, err := h.academyFromParam(c)
	if err != nil {
		return err
	}
	sub, err := h.subscriptionForAcademy(c, academy.ID)
	if err != nil {
		return err
	}

	var req planChangeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	svc := services.NewSubscriptionService(h.db, h.midtransClient)
	if err := svc.ScheduleDowngrade(c.Request().Context(), sub, req.Tier, req.Cycle); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.invalidateBillingCache(c, academy.ID)
	return c.JSON(http.StatusOK, sub)
}

// Cancel turns off auto-renew; the subscription lapses at period end
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	academy, err := h.academyFromParam(c)
	if err != nil {
		return err
	}
	sub, err := h.subscriptionForAcademy(c, academy.ID)
	if err != nil {
		return err
	}

	svc := services.NewSubscriptionService(h.db, h.midtransClient)
	if err := svc.Cancel(c.Request().Context(), sub); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Cancel failed: "+err.Error())
	}
	log.Printf("Subscription %d canceled by %s", sub.ID, getStringFromContext(c, "userEmail"))

	h.invalidateBillingCache(c, academy.ID)
	return c.JSON(http.StatusOK, sub)
}

// GetSubscription returns the academy's current subscription state
func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
	academy, err := h.academyFromParam(c)
	if err != nil {
		return err
	}
	sub, err := h.subscriptionForAcademy(c, academy.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *SubscriptionHandler) invalidateBillingCache(c echo.Context, academyID uint) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeleteByPrefix(c.Request().Context(), billingSummaryCachePrefix(academyID)); err != nil {
		c.Logger().Warnf("Failed to invalidate billing cache for academy %d: %v", academyID, err)
	}
}
