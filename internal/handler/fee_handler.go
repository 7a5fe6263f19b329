package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-sis-api/internal/models"
	"github.com/noah-isme/sma-sis-api/internal/service"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
	"github.com/noah-isme/sma-sis-api/pkg/response"
)

// FeeHandler exposes fee assignment and ledger endpoints.
type FeeHandler struct {
	fees *service.FeeService
}

// NewFeeHandler constructs handler.
func NewFeeHandler(fees *service.FeeService) *FeeHandler {
	return &FeeHandler{fees: fees}
}

// Assign godoc
// @Summary Assign a fee structure to a student
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.AssignFeeRequest true "Fee assignment payload"
// @Success 201 {object} response.Envelope
// @Router /fees [post]
func (h *FeeHandler) Assign(c *gin.Context) {
	var req service.AssignFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.fees.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// List godoc
// @Summary List student fees
// @Tags Fees
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param sessionId query string false "Filter by session"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) List(c *gin.Context) {
	filter := models.StudentFeeFilter{
		StudentID: c.Query("studentId"),
		SessionID: c.Query("sessionId"),
		Status:    models.FeeStatus(c.Query("status")),
		Page:      intQuery(c, "page", 1),
		PageSize:  intQuery(c, "limit", 20),
	}
	fees, pagination, err := h.fees.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, pagination)
}

// Ledger godoc
// @Summary Get a fee ledger with payment and discount history
// @Tags Fees
// @Produce json
// @Param id path string true "Student fee ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/ledger [get]
func (h *FeeHandler) Ledger(c *gin.Context) {
	ledger, err := h.fees.Ledger(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger, nil)
}

// Reconcile godoc
// @Summary Rebuild ledger aggregates from the payment/discount event log
// @Tags Fees
// @Produce json
// @Param id path string true "Student fee ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/reconcile [post]
func (h *FeeHandler) Reconcile(c *gin.Context) {
	fee, err := h.fees.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Collections godoc
// @Summary Export fee collections of a date range as CSV
// @Tags Fees
// @Produce text/csv
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD), exclusive"
// @Success 200 {string} string "CSV payload"
// @Router /fees/collections.csv [get]
func (h *FeeHandler) Collections(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
		return
	}
	payload, err := h.fees.CollectionsCSV(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=collections.csv")
	c.Data(http.StatusOK, "text/csv", payload)
}
