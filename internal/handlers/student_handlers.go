package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
)

type StudentHandler struct {
	db *gorm.DB
}

func NewStudentHandler(db *gorm.DB) *StudentHandler {
	return &StudentHandler{db: db}
}

type studentRequest struct {
	Name        string               `json:"name"`
	Email       string               `json:"email"`
	Phone       string               `json:"phone"`
	ParentPhone string               `json:"parent_phone"`
	Status      models.StudentStatus `json:"status"`
}

// ListStudents returns an academy's students, optionally filtered by status
func (h *StudentHandler) ListStudents(c echo.Context) error {
	academyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid academy ID")
	}

	query := h.db.Where("academy_id = ?", uint(academyID))
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var students []models.Student
	if err := query.Order("name asc").Find(&students).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch students")
	}
	return c.JSON(http.StatusOK, students)
}

// GetStudent returns a single student
func (h *StudentHandler) GetStudent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("studentId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid student ID")
	}

	var student models.Student
	if err := h.db.First(&student, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Student not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch student")
	}
	return c.JSON(http.StatusOK, student)
}

// CreateStudent enrolls a new student into an academy
func (h *StudentHandler) CreateStudent(c echo.Context) error {
	academyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid academy ID")
	}

	var req studentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name is required")
	}
	if req.Status == "" {
		req.Status = models.StudentStatusActive
	}

	student := models.Student{
		AcademyID:   uint(academyID),
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		ParentPhone: req.ParentPhone,
		Status:      req.Status,
	}
	if err := h.db.Create(&student).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create student")
	}
	return c.JSON(http.StatusCreated, student)
}

// UpdateStudent updates a student's profile or enrollment status
func (h *StudentHandler) UpdateStudent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("studentId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid student ID")
	}

	var student models.Student
	if err := h.db.First(&student, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Student not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch student")
	}

	var req studentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if req.Name != "" {
		student.Name = req.Name
	}
	if req.Email != "" {
		student.Email = req.Email
	}
	if req.Phone != "" {
		student.Phone = req.Phone
	}
	if req.ParentPhone != "" {
		student.ParentPhone = req.ParentPhone
	}
	if req.Status != "" {
		student.Status = req.Status
	}

	if err := h.db.Save(&student).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update student")
	}
	return c.JSON(http.StatusOK, student)
}

// DeleteStudent soft-deletes a student. Their invoices are kept.
func (h *StudentHandler) DeleteStudent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("studentId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid student ID")
	}

	if err := h.db.Delete(&models.Student{}, uint(id)).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete student")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}
