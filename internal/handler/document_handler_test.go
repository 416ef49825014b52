package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/doc-review-api/internal/dto"
	"github.com/noah-isme/doc-review-api/internal/middleware"
	"github.com/noah-isme/doc-review-api/internal/models"
	"github.com/noah-isme/doc-review-api/internal/service"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type fakeDocumentSrv struct {
	uploadDoc  *models.Document
	uploadErr  error
	reviewDoc  *models.Document
	reviewErr  error
	listDocs   []models.DocumentDetail
	listTotal  int
	lastUpload struct {
		req    dto.UploadDocumentRequest
		upload service.DocumentUpload
	}
	lastReviewID string
}

func (f *fakeDocumentSrv) Upload(_ context.Context, req dto.UploadDocumentRequest, upload service.DocumentUpload, _ *models.JWTClaims) (*models.Document, error) {
	f.lastUpload.req = req
	f.lastUpload.upload = upload
	return f.uploadDoc, f.uploadErr
}

func (f *fakeDocumentSrv) Review(_ context.Context, id string, _ dto.ReviewDocumentRequest, _ *models.JWTClaims) (*models.Document, error) {
	f.lastReviewID = id
	return f.reviewDoc, f.reviewErr
}

func (f *fakeDocumentSrv) List(context.Context, dto.DocumentListQuery, *models.JWTClaims) ([]models.DocumentDetail, int, error) {
	return f.listDocs, f.listTotal, nil
}

func (f *fakeDocumentSrv) Get(context.Context, string, *models.JWTClaims) (*models.Document, error) {
	return f.uploadDoc, nil
}

func (f *fakeDocumentSrv) GetDownloadURL(context.Context, string, *models.JWTClaims) (string, error) {
	return "/api/v1/documents/doc-1/download?token=tok", nil
}

func (f *fakeDocumentSrv) Download(context.Context, string, string, *models.JWTClaims) (*service.DocumentDownload, error) {
	return nil, appErrors.ErrNotFound
}

type fakeInvalidator struct {
	periods []string
}

func (f *fakeInvalidator) InvalidatePeriod(_ context.Context, periodID string) {
	f.periods = append(f.periods, periodID)
}

func multipartUpload(t *testing.T, fields map[string]string, filename string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		assert.NoError(t, err)
		_, err = part.Write([]byte("contenido"))
		assert.NoError(t, err)
	}
	assert.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestDocumentHandlerUploadRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(&fakeDocumentSrv{}, nil, nil)

	body, contentType := multipartUpload(t, map[string]string{"deliverable_id": "del-1"}, "")
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/documents", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleDocente})

	handler.Upload(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandlerUploadSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDocumentSrv{
		uploadDoc: &models.Document{ID: "doc-1", PeriodID: "period-1", Status: models.StatusEnviado},
	}
	invalidator := &fakeInvalidator{}
	handler := NewDocumentHandler(srv, nil, invalidator)

	body, contentType := multipartUpload(t, map[string]string{"deliverable_id": "del-1"}, "plan.pdf")
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/documents", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleDocente})

	handler.Upload(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "del-1", srv.lastUpload.req.DeliverableID)
	assert.Equal(t, "plan.pdf", srv.lastUpload.upload.Filename)
	assert.Equal(t, []string{"period-1"}, invalidator.periods)
}

func TestDocumentHandlerUploadUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(&fakeDocumentSrv{}, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/documents", nil)

	handler.Upload(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDocumentHandlerReviewInvalidatesDashboard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDocumentSrv{
		reviewDoc: &models.Document{ID: "doc-1", PeriodID: "period-1", Status: models.StatusAprobado},
	}
	invalidator := &fakeInvalidator{}
	handler := NewDocumentHandler(srv, nil, invalidator)

	payload := `{"status":"APROBADO"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/documents/doc-1/review", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "vice-1", Role: models.RoleVicerrector})

	handler.Review(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "doc-1", srv.lastReviewID)
	assert.Equal(t, []string{"period-1"}, invalidator.periods)
}

func TestDocumentHandlerListPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDocumentSrv{
		listDocs:  []models.DocumentDetail{{Document: models.Document{ID: "doc-1"}}},
		listTotal: 41,
	}
	handler := NewDocumentHandler(srv, nil, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/documents?page=2&page_size=20", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "vice-1", Role: models.RoleVicerrector})

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Pagination struct {
			Page       int `json:"page"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 2, envelope.Pagination.Page)
	assert.Equal(t, 3, envelope.Pagination.TotalPages)
}
