package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"gorm.io/gorm"

	"github.com/academy-education/classraum-sub009/internal/models"
	"github.com/academy-education/classraum-sub009/internal/services"
)

type InvoiceHandler struct {
	db             *gorm.DB
	midtransClient *services.MidtransService
}

func NewInvoiceHandler(db *gorm.DB, midtransClient *services.MidtransService) *InvoiceHandler {
	return &InvoiceHandler{db: db, midtransClient: midtransClient}
}

// ListInvoices returns invoices for an academy with filtering, sorting and
// pagination
func (h *InvoiceHandler) ListInvoices(c echo.Context) error {
	academyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid academy ID")
	}

	// Parse query parameters
	filterStatus := c.QueryParam("status")
	filterStudentStr := c.QueryParam("student_id")
	filterTemplateStr := c.QueryParam("template_id")
	sortBy := c.QueryParam("sort_by")
	if sortBy == "" {
		sortBy = "due_date"
	}
	sortOrder := c.QueryParam("sort_order")
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	// Parse pagination parameters
	page := 1
	if pageStr := c.QueryParam("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	pageSize := 20 // Items per page

	query := h.db.Model(&models.Invoice{}).
		Preload("Student").
		Where("academy_id = ?", uint(academyID))

	if filterStatus != "" {
		query = query.Where("status = ?", filterStatus)
	}
	if filterStudentStr != "" {
		if val, err := strconv.ParseUint(filterStudentStr, 10, 32); err == nil {
			query = query.Where("student_id = ?", uint(val))
		}
	}
	if filterTemplateStr != "" {
		if val, err := strconv.ParseUint(filterTemplateStr, 10, 32); err == nil {
			query = query.Where("template_id = ?", uint(val))
		}
	}

	// Get total count for pagination
	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to count invoices")
	}

	totalPages := int((totalCount + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	offset := (page - 1) * pageSize

	switch sortBy {
	case "amount":
		query = query.Order("final_amount " + sortOrder)
	case "due_date":
		query = query.Order("due_date " + sortOrder)
	default:
		query = query.Order("id " + sortOrder)
	}

	var invoices []models.Invoice
	if err := query.Limit(pageSize).Offset(offset).Find(&invoices).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch invoices")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"pagination": Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalCount:  totalCount,
			PageSize:    pageSize,
		},
	})
}

// GetInvoice returns a single invoice with its student and refunds
func (h *InvoiceHandler) GetInvoice(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("invoiceId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid invoice ID")
	}

	var invoice models.Invoice
	if err := h.db.Preload("Student").Preload("Refunds").First(&invoice, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Invoice not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch invoice")
	}

	return c.JSON(http.StatusOK, invoice)
}

// InitiatePayment creates a gateway checkout for a pending invoice
func (h *InvoiceHandler) InitiatePayment(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("invoiceId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid invoice ID")
	}

	var invoice models.Invoice
	if err := h.db.Preload("Student").Preload("Template").First(&invoice, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Invoice not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch invoice")
	}

	if invoice.Status == models.InvoiceStatusPaid {
		return echo.NewHTTPError(http.StatusBadRequest, "Invoice is already paid")
	}

	now := time.Now()
	orderID := services.BuildInvoiceOrderID(invoice.ID, now)

	itemName := "Invoice " + invoice.UUID
	if invoice.Template != nil {
		itemName = invoice.Template.Name
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: invoice.FinalAmount,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    fmt.Sprintf("invoice-%d", invoice.ID),
				Name:  itemName,
				Price: invoice.FinalAmount,
				Qty:   1,
			},
		},
	}
	if invoice.Student != nil {
		req.CustomerDetail = &midtrans.CustomerDetails{
			FName: invoice.Student.Name,
			Email: invoice.Student.Email,
		}
	}

	resp, err := h.midtransClient.CreateTransaction(orderID, invoice.FinalAmount, req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create transaction: "+err.Error())
	}

	respBytes, _ := json.Marshal(resp)
	record := models.PaymentRecord{
		OrderID:          orderID,
		Gateway:          models.PaymentGatewayMidtrans,
		EntityType:       models.PaymentEntityInvoice,
		EntityID:         invoice.ID,
		AcademyID:        invoice.AcademyID,
		Amount:           invoice.FinalAmount,
		VerifiedStatus:   string(services.GatewayStatusPending),
		ResponseMetadata: respBytes,
	}
	if err := h.db.Create(&record).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to record payment")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"order_id":     orderID,
		"token":        resp.Token,
		"redirect_url": resp.RedirectURL,
	})
}
