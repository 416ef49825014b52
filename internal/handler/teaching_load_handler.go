package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/doc-review-api/internal/service"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
	"github.com/noah-isme/doc-review-api/pkg/response"
)

// TeachingLoadHandler exposes teaching-load assignment endpoints.
type TeachingLoadHandler struct {
	service *service.TeachingLoadService
}

// NewTeachingLoadHandler constructs the handler.
func NewTeachingLoadHandler(svc *service.TeachingLoadService) *TeachingLoadHandler {
	return &TeachingLoadHandler{service: svc}
}

// ListByTeacher godoc
// @Summary List a docente's teaching loads
// @Tags TeachingLoads
// @Produce json
// @Param id path string true "Docente ID"
// @Param period_id query string false "Period"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/loads [get]
func (h *TeachingLoadHandler) ListByTeacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	loads, err := h.service.ListByTeacher(c.Request.Context(), c.Param("id"), c.Query("period_id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loads, nil)
}

// ListByPeriod godoc
// @Summary List every teaching load of a period
// @Tags TeachingLoads
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /periods/{id}/loads [get]
func (h *TeachingLoadHandler) ListByPeriod(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	loads, err := h.service.ListByPeriod(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loads, nil)
}

// Assign godoc
// @Summary Assign a teaching load
// @Tags TeachingLoads
// @Accept json
// @Produce json
// @Param payload body service.AssignTeachingLoadRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /teaching-loads [post]
func (h *TeachingLoadHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AssignTeachingLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid teaching load payload"))
		return
	}
	load, err := h.service.Assign(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, load, nil)
}

// Remove godoc
// @Summary Deactivate a teaching load
// @Tags TeachingLoads
// @Produce json
// @Param id path string true "Load ID"
// @Success 204
// @Router /teaching-loads/{id} [delete]
func (h *TeachingLoadHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Remove(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
