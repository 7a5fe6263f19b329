package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-sis-api/internal/service"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
	"github.com/noah-isme/sma-sis-api/pkg/response"
)

// MarkHandler exposes marks entry endpoints.
type MarkHandler struct {
	marks *service.MarkService
}

// NewMarkHandler constructs handler.
func NewMarkHandler(marks *service.MarkService) *MarkHandler {
	return &MarkHandler{marks: marks}
}

// Record godoc
// @Summary Record or overwrite one student's marks for an exam subject
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body service.RecordMarksRequest true "Marks payload"
// @Success 200 {object} response.Envelope
// @Router /marks [put]
func (h *MarkHandler) Record(c *gin.Context) {
	var req service.RecordMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.EnteredBy = claims.UserID
	}
	mark, err := h.marks.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// Bulk godoc
// @Summary Record a roster of marks for one exam subject atomically
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body service.BulkMarksRequest true "Bulk marks payload"
// @Success 200 {object} response.Envelope
// @Router /marks/bulk [put]
func (h *MarkHandler) Bulk(c *gin.Context) {
	var req service.BulkMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		req.EnteredBy = claims.UserID
	}
	saved, err := h.marks.BulkRecord(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"saved": saved}, nil)
}

// List godoc
// @Summary List marks of one exam subject
// @Tags Marks
// @Produce json
// @Param id path string true "Exam subject ID"
// @Success 200 {object} response.Envelope
// @Router /exam-subjects/{id}/marks [get]
func (h *MarkHandler) List(c *gin.Context) {
	marks, err := h.marks.ListBySubject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// Statistics godoc
// @Summary Aggregate statistics of one exam subject's marks
// @Tags Marks
// @Produce json
// @Param id path string true "Exam subject ID"
// @Success 200 {object} response.Envelope
// @Router /exam-subjects/{id}/statistics [get]
func (h *MarkHandler) Statistics(c *gin.Context) {
	stats, err := h.marks.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
