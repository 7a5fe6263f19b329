package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-sis-api/internal/service"
	appErrors "github.com/noah-isme/sma-sis-api/pkg/errors"
	"github.com/noah-isme/sma-sis-api/pkg/response"
)

// GradingHandler manages grading system configuration endpoints.
type GradingHandler struct {
	grading *service.GradingService
}

// NewGradingHandler constructs handler.
func NewGradingHandler(grading *service.GradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// Create godoc
// @Summary Create a grading system with its bands
// @Tags Grading
// @Accept json
// @Produce json
// @Param payload body service.CreateGradingSystemRequest true "Grading system"
// @Success 201 {object} response.Envelope
// @Router /grading-systems [post]
func (h *GradingHandler) Create(c *gin.Context) {
	var req service.CreateGradingSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	system, err := h.grading.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, system)
}

// Get godoc
// @Summary Get one grading system including bands
// @Tags Grading
// @Produce json
// @Param id path string true "Grading system ID"
// @Success 200 {object} response.Envelope
// @Router /grading-systems/{id} [get]
func (h *GradingHandler) Get(c *gin.Context) {
	system, err := h.grading.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, system, nil)
}

// List godoc
// @Summary List grading systems
// @Tags Grading
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grading-systems [get]
func (h *GradingHandler) List(c *gin.Context) {
	systems, err := h.grading.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, systems, nil)
}

// Activate godoc
// @Summary Mark one grading system as the active table
// @Tags Grading
// @Produce json
// @Param id path string true "Grading system ID"
// @Success 200 {object} response.Envelope
// @Router /grading-systems/{id}/activate [post]
func (h *GradingHandler) Activate(c *gin.Context) {
	if err := h.grading.Activate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"activated": true}, nil)
}
