package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
)

type TemplateHandler struct {
	db *gorm.DB
}

func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{db: db}
}

type templateRequest struct {
	Name           string                `json:"name"`
	Amount         int64                 `json:"amount"`
	RecurrenceType models.RecurrenceType `json:"recurrence_type"`
	DayOfMonth     int                   `json:"day_of_month"`
	DayOfWeek      int                   `json:"day_of_week"`
	StartDate      string                `json:"start_date"`
	EndDate        string                `json:"end_date,omitempty"`
	IsActive       *bool                 `json:"is_active,omitempty"`
}

type enrollRequest struct {
	StudentID      uint   `json:"student_id"`
	AmountOverride *int64 `json:"amount_override,omitempty"`
}

const templateDateLayout = "2006-01-02"

func (r templateRequest) validate() error {
	if r.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name is required")
	}
	if r.Amount < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Amount must be non-negative")
	}
	switch r.RecurrenceType {
	case models.RecurrenceTypeMonthly:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return echo.NewHTTPError(http.StatusBadRequest, "day_of_month must be between 1 and 31")
		}
	case models.RecurrenceTypeWeekly:
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return echo.NewHTTPError(http.StatusBadRequest, "day_of_week must be between 0 and 6")
		}
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "recurrence_type must be monthly or weekly")
	}
	return nil
}

// ListTemplates returns an academy's recurring payment templates
func (h *TemplateHandler) ListTemplates(c echo.Context) error {
	academyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid academy ID")
	}

	var templates []models.RecurringPaymentTemplate
	if err := h.db.Preload("Students.Student").
		Where("academy_id = ?", uint(academyID)).
		Order("next_due_date asc").
		Find(&templates).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch templates")
	}
	return c.JSON(http.StatusOK, templates)
}

// GetTemplate returns a single template with enrolled students
func (h *TemplateHandler) GetTemplate(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("templateId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid template ID")
	}

	var template models.RecurringPaymentTemplate
	if err := h.db.Preload("Students.Student").First(&template, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Template not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch template")
	}
	return c.JSON(http.StatusOK, template)
}

// CreateTemplate creates a recurring payment template. The first due date
// is computed from the recurrence rule and the start date.
func (h *TemplateHandler) CreateTemplate(c echo.Context) error {
	academyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid academy ID")
	}

	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	startDate := time.Now()
	if req.StartDate != "" {
		parsed, err := time.Parse(templateDateLayout, req.StartDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD")
		}
		startDate = parsed
	}

	template := models.RecurringPaymentTemplate{
		AcademyID:      uint(academyID),
		Name:           req.Name,
		Amount:         req.Amount,
		RecurrenceType: req.RecurrenceType,
		DayOfMonth:     req.DayOfMonth,
		DayOfWeek:      req.DayOfWeek,
		StartDate:      startDate,
		IsActive:       true,
	}
	if req.EndDate != "" {
		endDate, err := time.Parse(templateDateLayout, req.EndDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD")
		}
		template.EndDate = &endDate
	}
	template.NextDueDate = template.NextOccurrence(startDate.AddDate(0, 0, -1))

	if err := h.db.Create(&template).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create template")
	}
	return c.JSON(http.StatusCreated, template)
}

// UpdateTemplate updates the template's fields. The next due date is left
// alone unless the recurrence rule changed.
func (h *TemplateHandler) UpdateTemplate(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("templateId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid template ID")
	}

	var template models.RecurringPaymentTemplate
	if err := h.db.First(&template, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Template not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch template")
	}

	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ruleChanged := false
	if req.Name != "" {
		template.Name = req.Name
	}
	if req.Amount > 0 {
		template.Amount = req.Amount
	}
	if req.RecurrenceType != "" && req.RecurrenceType != template.RecurrenceType {
		template.RecurrenceType = req.RecurrenceType
		ruleChanged = true
	}
	if req.DayOfMonth != 0 && req.DayOfMonth != template.DayOfMonth {
		template.DayOfMonth = req.DayOfMonth
		ruleChanged = true
	}
	if req.DayOfWeek != template.DayOfWeek && template.RecurrenceType == models.RecurrenceTypeWeekly {
		template.DayOfWeek = req.DayOfWeek
		ruleChanged = true
	}
	if req.EndDate != "" {
		endDate, err := time.Parse(templateDateLayout, req.EndDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD")
		}
		template.EndDate = &endDate
	}
	if req.IsActive != nil {
		template.IsActive = *req.IsActive
	}

	if ruleChanged {
		template.NextDueDate = template.NextOccurrence(time.Now())
	}

	if err := h.db.Save(&template).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update template")
	}
	return c.JSON(http.StatusOK, template)
}

// DeleteTemplate soft-deletes a template. Generated invoices are kept.
func (h *TemplateHandler) DeleteTemplate(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("templateId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid template ID")
	}

	if err := h.db.Delete(&models.RecurringPaymentTemplate{}, uint(id)).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete template")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// EnrollStudent adds a student to a template, optionally with a per-student
// amount override
func (h *TemplateHandler) EnrollStudent(c echo.Context) error {
	templateID, err := strconv.ParseUint(c.Param("templateId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid template ID")
	}

	var req enrollRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.StudentID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "student_id is required")
	}

	var template models.RecurringPaymentTemplate
	if err := h.db.First(&template, uint(templateID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Template not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch template")
	}
	var student models.Student
	if err := h.db.First(&student, req.StudentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Student not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch student")
	}
	if student.AcademyID != template.AcademyID {
		return echo.NewHTTPError(http.StatusBadRequest, "Student belongs to a different academy")
	}

	enrollment := models.TemplateStudent{
		TemplateID:     uint(templateID),
		StudentID:      req.StudentID,
		AmountOverride: req.AmountOverride,
	}
	if err := h.db.Create(&enrollment).Error; err != nil {
		return echo.NewHTTPError(http.StatusConflict, "Student is already enrolled in this template")
	}
	return c.JSON(http.StatusCreated, enrollment)
}

// UnenrollStudent removes a student from a template
func (h *TemplateHandler) UnenrollStudent(c echo.Context) error {
	templateID, err := strconv.ParseUint(c.Param("templateId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid template ID")
	}
	studentID, err := strconv.ParseUint(c.Param("studentId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid student ID")
	}

	result := h.db.Where("template_id = ? AND student_id = ?", uint(templateID), uint(studentID)).
		Delete(&models.TemplateStudent{})
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to unenroll student")
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Enrollment not found")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "unenrolled"})
}
