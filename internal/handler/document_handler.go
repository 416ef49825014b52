package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/doc-review-api/internal/dto"
	"github.com/noah-isme/doc-review-api/internal/models"
	"github.com/noah-isme/doc-review-api/internal/service"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
	"github.com/noah-isme/doc-review-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, req dto.UploadDocumentRequest, upload service.DocumentUpload, actor *models.JWTClaims) (*models.Document, error)
	Review(ctx context.Context, id string, req dto.ReviewDocumentRequest, actor *models.JWTClaims) (*models.Document, error)
	List(ctx context.Context, query dto.DocumentListQuery, actor *models.JWTClaims) ([]models.DocumentDetail, int, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Document, error)
	GetDownloadURL(ctx context.Context, id string, actor *models.JWTClaims) (string, error)
	Download(ctx context.Context, id, token string, actor *models.JWTClaims) (*service.DocumentDownload, error)
}

type dashboardInvalidator interface {
	InvalidatePeriod(ctx context.Context, periodID string)
}

// DocumentHandler manages document submission and review endpoints.
type DocumentHandler struct {
	service   documentService
	metrics   *service.MetricsService
	dashboard dashboardInvalidator
}

// NewDocumentHandler constructs the handler. Metrics and dashboard are
// optional.
func NewDocumentHandler(svc documentService, metrics *service.MetricsService, dashboard dashboardInvalidator) *DocumentHandler {
	return &DocumentHandler{service: svc, metrics: metrics, dashboard: dashboard}
}

// Upload godoc
// @Summary Submit a document against a deliverable
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param deliverable_id formData string true "Deliverable"
// @Param teaching_load_id formData string false "Teaching load"
// @Param teacher_comment formData string false "Comment"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}

	upload := service.DocumentUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  reader,
	}
	doc, err := h.service.Upload(c.Request.Context(), req, upload, claims)
	if err != nil {
		h.metrics.RecordUpload("rejected")
		response.Error(c, err)
		return
	}
	h.metrics.RecordUpload("accepted")
	if h.dashboard != nil {
		h.dashboard.InvalidatePeriod(c.Request.Context(), doc.PeriodID)
	}
	response.JSON(c, http.StatusCreated, doc, nil)
}

// List godoc
// @Summary List documents for review triage
// @Tags Documents
// @Produce json
// @Param status query string false "Status filter"
// @Param period_id query string false "Period filter"
// @Param teacher_id query string false "Docente filter"
// @Param deliverable_id query string false "Deliverable filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.DocumentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid listing query"))
		return
	}
	docs, total, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pageSize := query.Page, query.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	response.JSON(c, http.StatusOK, docs, pagination)
}

// Get godoc
// @Summary Get document metadata with a signed download URL
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	downloadURL, err := h.service.GetDownloadURL(c.Request.Context(), doc.ID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"document":     doc,
		"download_url": downloadURL,
	}, nil)
}

// Review godoc
// @Summary Record a reviewer decision
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.ReviewDocumentRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/status [patch]
func (h *DocumentHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ReviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return
	}
	doc, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordReview(string(doc.Status))
	if h.dashboard != nil {
		h.dashboard.InvalidatePeriod(c.Request.Context(), doc.PeriodID)
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Download godoc
// @Summary Download a document via signed token
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	token := c.Query("token")
	if strings.TrimSpace(token) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	result, err := h.service.Download(c.Request.Context(), c.Param("id"), token, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, "application/octet-stream", result.File, nil)
}
