package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/doc-review-api/internal/models"
	"github.com/noah-isme/doc-review-api/internal/service"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
	"github.com/noah-isme/doc-review-api/pkg/response"
)

// DeliverableHandler exposes deliverable schedule endpoints.
type DeliverableHandler struct {
	service *service.DeliverableService
}

// NewDeliverableHandler constructs the handler.
func NewDeliverableHandler(svc *service.DeliverableService) *DeliverableHandler {
	return &DeliverableHandler{service: svc}
}

// List godoc
// @Summary List deliverables
// @Tags Deliverables
// @Produce json
// @Param period_id query string false "Period filter"
// @Param stage_id query string false "Stage filter"
// @Param active query bool false "Active filter"
// @Success 200 {object} response.Envelope
// @Router /deliverables [get]
func (h *DeliverableHandler) List(c *gin.Context) {
	var filter models.DeliverableFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid listing query"))
		return
	}
	deliverables, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deliverables, nil)
}

// Create godoc
// @Summary Create a deliverable
// @Tags Deliverables
// @Accept json
// @Produce json
// @Param payload body service.SaveDeliverableRequest true "Deliverable payload"
// @Success 201 {object} response.Envelope
// @Router /deliverables [post]
func (h *DeliverableHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SaveDeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid deliverable payload"))
		return
	}
	deliverable, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, deliverable, nil)
}

// Update godoc
// @Summary Update a deliverable
// @Tags Deliverables
// @Accept json
// @Produce json
// @Param id path string true "Deliverable ID"
// @Param payload body service.SaveDeliverableRequest true "Deliverable payload"
// @Success 200 {object} response.Envelope
// @Router /deliverables/{id} [put]
func (h *DeliverableHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SaveDeliverableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid deliverable payload"))
		return
	}
	deliverable, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, deliverable, nil)
}

// Remove godoc
// @Summary Remove a deliverable
// @Tags Deliverables
// @Produce json
// @Param id path string true "Deliverable ID"
// @Success 204
// @Router /deliverables/{id} [delete]
func (h *DeliverableHandler) Remove(c *gin.Context) {
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
