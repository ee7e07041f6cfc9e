package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
)

type NotificationSettingHandler struct {
	db *gorm.DB
}

func NewNotificationSettingHandler(db *gorm.DB) *NotificationSettingHandler {
	return &NotificationSettingHandler{db: db}
}

type notificationSettingRequest struct {
	Channel            models.NotificationChannel `json:"channel"`
	WhatsappTargetType string                     `json:"whatsapp_target_type"`
	WhatsappGroupID    string                     `json:"whatsapp_group_id"`
}

// GetSetting returns the student's notification preference, defaulting to
// email when none is stored
func (h *NotificationSettingHandler) GetSetting(c echo.Context) error {
	studentID, err := strconv.ParseUint(c.Param("studentId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid student ID")
	}

	var setting models.NotificationSetting
	if err := h.db.Where("student_id = ?", uint(studentID)).First(&setting).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusOK, models.NotificationSetting{
				StudentID: uint(studentID),
				Channel:   models.NotificationChannelEmail,
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch notification setting")
	}
	return c.JSON(http.StatusOK, setting)
}

// UpsertSetting creates or updates the student's notification preference
func (h *NotificationSettingHandler) UpsertSetting(c echo.Context) error {
	studentID, err := strconv.ParseUint(c.Param("studentId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid student ID")
	}

	var req notificationSettingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	switch req.Channel {
	case models.NotificationChannelEmail, models.NotificationChannelWhatsapp, models.NotificationChannelNone:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "channel must be email, whatsapp or none")
	}
	if req.Channel == models.NotificationChannelWhatsapp {
		if req.WhatsappTargetType == "" {
			req.WhatsappTargetType = models.WhatsappTargetTypePersonal
		}
		if req.WhatsappTargetType == models.WhatsappTargetTypeGroup && req.WhatsappGroupID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "whatsapp_group_id is required for group targets")
		}
	}

	var student models.Student
	if err := h.db.First(&student, uint(studentID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Student not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch student")
	}

	var setting models.NotificationSetting
	err = h.db.Where("student_id = ?", uint(studentID)).First(&setting).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch notification setting")
	}

	setting.StudentID = uint(studentID)
	setting.Channel = req.Channel
	setting.WhatsappTargetType = req.WhatsappTargetType
	setting.WhatsappGroupID = req.WhatsappGroupID

	if err := h.db.Save(&setting).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save notification setting")
	}
	return c.JSON(http.StatusOK, setting)
}
