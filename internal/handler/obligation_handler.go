package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/doc-review-api/internal/models"
	"github.com/noah-isme/doc-review-api/internal/service"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
	"github.com/noah-isme/doc-review-api/pkg/response"
)

// ObligationHandler exposes the pending-obligations view.
type ObligationHandler struct {
	service *service.ObligationService
}

// NewObligationHandler constructs the handler.
func NewObligationHandler(svc *service.ObligationService) *ObligationHandler {
	return &ObligationHandler{service: svc}
}

// Mine godoc
// @Summary List the caller's obligations with their fulfilment state
// @Tags Obligations
// @Produce json
// @Param period_id query string false "Period, defaults to the active one"
// @Success 200 {object} response.Envelope
// @Router /documents/pending [get]
func (h *ObligationHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	set, err := h.service.ForTeacher(c.Request.Context(), claims.UserID, c.Query("period_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set, nil)
}

// ForTeacher godoc
// @Summary List a docente's obligations
// @Tags Obligations
// @Produce json
// @Param id path string true "Docente ID"
// @Param period_id query string false "Period, defaults to the active one"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/obligations [get]
func (h *ObligationHandler) ForTeacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	teacherID := c.Param("id")
	if claims.Role != models.RoleVicerrector && claims.UserID != teacherID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	set, err := h.service.ForTeacher(c.Request.Context(), teacherID, c.Query("period_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set, nil)
}
