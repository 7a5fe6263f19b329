package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-sis-api/internal/middleware"
	"github.com/noah-isme/sma-sis-api/internal/service"
	"github.com/noah-isme/sma-sis-api/pkg/response"
)

// ResultHandler exposes result computation and publishing endpoints.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler constructs handler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// Compute godoc
// @Summary Compute one student's exam result
// @Tags Results
// @Produce json
// @Param id path string true "Exam ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/results/{studentId}/compute [post]
func (h *ResultHandler) Compute(c *gin.Context) {
	result, err := h.results.Compute(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ComputeClass godoc
// @Summary Compute results for every student with complete marks
// @Tags Results
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/results/compute [post]
func (h *ResultHandler) ComputeClass(c *gin.Context) {
	summary, err := h.results.ComputeClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Get godoc
// @Summary Get one computed result
// @Tags Results
// @Produce json
// @Param id path string true "Exam ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/results/{studentId} [get]
func (h *ResultHandler) Get(c *gin.Context) {
	result, err := h.results.Get(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MeritList godoc
// @Summary Ranked merit list of one exam
// @Tags Results
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/merit-list [get]
func (h *ResultHandler) MeritList(c *gin.Context) {
	rows, cached, err := h.results.MeritList(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, rows, nil, middleware.ExtractMeta(c))
}

// Publish godoc
// @Summary Publish all draft results of an exam
// @Tags Results
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/results/publish [post]
func (h *ResultHandler) Publish(c *gin.Context) {
	published, err := h.results.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"published": published}, nil)
}
