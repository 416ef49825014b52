package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/doc-review-api/internal/service"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
	"github.com/noah-isme/doc-review-api/pkg/response"
)

// DocumentTypeHandler exposes document type catalog endpoints.
type DocumentTypeHandler struct {
	service *service.DocumentTypeService
}

// NewDocumentTypeHandler constructs the handler.
func NewDocumentTypeHandler(svc *service.DocumentTypeService) *DocumentTypeHandler {
	return &DocumentTypeHandler{service: svc}
}

// List godoc
// @Summary List document types
// @Tags DocumentTypes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /document-types [get]
func (h *DocumentTypeHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	types, err := h.service.List(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, types, nil)
}

// Get godoc
// @Summary Get a document type
// @Tags DocumentTypes
// @Produce json
// @Param id path string true "Type ID"
// @Success 200 {object} response.Envelope
// @Router /document-types/{id} [get]
func (h *DocumentTypeHandler) Get(c *gin.Context) {
	docType, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docType, nil)
}

// Create godoc
// @Summary Create a document type
// @Tags DocumentTypes
// @Accept json
// @Produce json
// @Param payload body service.SaveDocumentTypeRequest true "Type payload"
// @Success 201 {object} response.Envelope
// @Router /document-types [post]
func (h *DocumentTypeHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SaveDocumentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document type payload"))
		return
	}
	docType, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, docType, nil)
}

// Update godoc
// @Summary Update a document type
// @Tags DocumentTypes
// @Accept json
// @Produce json
// @Param id path string true "Type ID"
// @Param payload body service.SaveDocumentTypeRequest true "Type payload"
// @Success 200 {object} response.Envelope
// @Router /document-types/{id} [put]
func (h *DocumentTypeHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SaveDocumentTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document type payload"))
		return
	}
	docType, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docType, nil)
}
