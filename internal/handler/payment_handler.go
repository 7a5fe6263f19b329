package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-sis-api/internal/service"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
	"github.com/noah-isme/sma-sis-api/pkg/export"
	"github.com/noah-isme/sma-sis-api/pkg/response"
)

// PaymentHandler exposes payment collection and receipt endpoints.
type PaymentHandler struct {
	payments    *service.PaymentService
	discounts   *service.DiscountService
	pdf         *export.PDFExporter
	institution string
}

// NewPaymentHandler constructs handler.
func NewPaymentHandler(payments *service.PaymentService, discounts *service.DiscountService, institution string) *PaymentHandler {
	return &PaymentHandler{payments: payments, discounts: discounts, pdf: export.NewPDFExporter(), institution: institution}
}

// Collect godoc
// @Summary Collect a payment against a student fee
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.ProcessPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Collect(c *gin.Context) {
	var req service.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.CollectedBy = claims.UserID
	}
	receipt, err := h.payments.ProcessPayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// Discount godoc
// @Summary Apply an approved discount or waiver to a student fee
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.ApplyDiscountRequest true "Discount payload"
// @Success 200 {object} response.Envelope
// @Router /discounts [post]
func (h *PaymentHandler) Discount(c *gin.Context) {
	var req service.ApplyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.ApprovedBy = claims.UserID
	}
	fee, err := h.discounts.Apply(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Receipt godoc
// @Summary Download a payment receipt as PDF
// @Tags Payments
// @Produce application/pdf
// @Param id path string true "Student fee ID"
// @Param receipt path string true "Receipt number"
// @Success 200 {string} string "PDF payload"
// @Router /fees/{id}/receipts/{receipt} [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	receipt, err := h.payments.Receipt(c.Request.Context(), c.Param("id"), c.Param("receipt"))
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.pdf.ReceiptPDF(*receipt, h.institution)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt"))
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+receipt.ReceiptNumber+".pdf")
	c.Data(http.StatusOK, "application/pdf", payload)
}
