package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/doc-review-api/internal/service"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
	"github.com/noah-isme/doc-review-api/pkg/response"
)

// DashboardHandler exposes reviewer dashboards.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Summary godoc
// @Summary Review workload summary for a period
// @Tags Dashboard
// @Produce json
// @Param period_id query string false "Period, defaults to the active one"
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, cached, err := h.service.Summary(c.Request.Context(), c.Query("period_id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cached": cached})
}

// Compliance godoc
// @Summary Per-docente obligation compliance for a period
// @Tags Dashboard
// @Produce json
// @Param period_id query string false "Period, defaults to the active one"
// @Success 200 {object} response.Envelope
// @Router /dashboard/compliance [get]
func (h *DashboardHandler) Compliance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, cached, err := h.service.Compliance(c.Request.Context(), c.Query("period_id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cached": cached})
}
