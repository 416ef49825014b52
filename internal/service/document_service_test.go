package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/doc-review-api/internal/dto"
	"github.com/noah-isme/doc-review-api/internal/models"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type documentStoreStub struct {
	createErr error
	created   []*models.Document
	byID      map[string]*models.Document
	chain     []models.Document
	updated   []models.DocumentStatus
}

func (s *documentStoreStub) Create(ctx context.Context, doc *models.Document) error {
	if s.createErr != nil {
		return s.createErr
	}
	doc.ID = "doc-new"
	s.created = append(s.created, doc)
	return nil
}

func (s *documentStoreStub) FindByID(ctx context.Context, id string) (*models.Document, error) {
	if doc, ok := s.byID[id]; ok {
		cp := *doc
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *documentStoreStub) List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentDetail, int, error) {
	return nil, 0, nil
}

func (s *documentStoreStub) ListByDeliverableAndLoad(ctx context.Context, teacherID, deliverableID string, teachingLoadID *string) ([]models.Document, error) {
	return s.chain, nil
}

func (s *documentStoreStub) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, reviewerComment *string, reviewedAt time.Time) error {
	if _, ok := s.byID[id]; !ok {
		return sql.ErrNoRows
	}
	s.updated = append(s.updated, status)
	return nil
}

type deliverableReaderStub struct {
	items map[string]*models.Deliverable
}

func (s *deliverableReaderStub) FindByID(ctx context.Context, id string) (*models.Deliverable, error) {
	if deliverable, ok := s.items[id]; ok {
		cp := *deliverable
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type typeReaderStub struct {
	items map[string]*models.DocumentType
}

func (s *typeReaderStub) FindByID(ctx context.Context, id string) (*models.DocumentType, error) {
	if docType, ok := s.items[id]; ok {
		cp := *docType
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type loadReaderStub struct {
	items map[string]*models.TeachingLoadDetail
}

func (s *loadReaderStub) FindByID(ctx context.Context, id string) (*models.TeachingLoadDetail, error) {
	if load, ok := s.items[id]; ok {
		cp := *load
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type storageStub struct {
	saved   []string
	deleted []string
	saveErr error
}

func (s *storageStub) SaveStream(filename string, r io.Reader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved = append(s.saved, filename)
	return filename, nil
}

func (s *storageStub) Open(filename string) (*os.File, error) {
	return nil, errors.New("not implemented")
}

func (s *storageStub) Delete(filename string) error {
	s.deleted = append(s.deleted, filename)
	return nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (s *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func docenteClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "teacher-1", Role: models.RoleDocente}
}

func vicerrectorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "vr-1", Role: models.RoleVicerrector}
}

func uploadFixture(name string, size int) DocumentUpload {
	return DocumentUpload{
		Filename: name,
		Size:     int64(size),
		Content:  bytes.NewReader(bytes.Repeat([]byte("a"), size)),
	}
}

func newDocumentServiceFixture(store *documentStoreStub, storage *storageStub, audit *auditStub) *DocumentService {
	// A nil *auditStub must become a nil interface, not a typed nil.
	var auditor auditLogger
	if audit != nil {
		auditor = audit
	}
	opened := time.Now().UTC().Add(-24 * time.Hour)
	deliverables := &deliverableReaderStub{items: map[string]*models.Deliverable{
		"del-plan": {ID: "del-plan", DocumentTypeID: "type-plan", PeriodID: "period-1", OpensAt: opened, Active: true},
		"del-free": {ID: "del-free", DocumentTypeID: "type-report", PeriodID: "period-1", OpensAt: opened, Active: true},
	}}
	types := &typeReaderStub{items: map[string]*models.DocumentType{
		"type-plan":   {ID: "type-plan", Name: "Planificacion", RequiresSubject: true, RequiresReview: true, AllowedExtensions: []string{"pdf", "docx"}, ExtensionsLabel: "PDF o DOCX"},
		"type-report": {ID: "type-report", Name: "Informe", RequiresReview: true},
	}}
	loads := &loadReaderStub{items: map[string]*models.TeachingLoadDetail{
		"load-1": {TeachingLoad: models.TeachingLoad{ID: "load-1", TeacherID: "teacher-1", PeriodID: "period-1", Active: true}},
		"load-x": {TeachingLoad: models.TeachingLoad{ID: "load-x", TeacherID: "teacher-2", PeriodID: "period-1", Active: true}},
	}}
	return NewDocumentService(store, deliverables, types, loads, storage, nil, auditor, nil, DocumentServiceConfig{MaxFileSize: 1024})
}

func TestDocumentServiceUpload(t *testing.T) {
	store := &documentStoreStub{}
	storage := &storageStub{}
	audit := &auditStub{}
	svc := newDocumentServiceFixture(store, storage, audit)

	loadID := "load-1"
	doc, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID:  "del-plan",
		TeachingLoadID: &loadID,
	}, uploadFixture("plan.pdf", 100), docenteClaims())
	require.NoError(t, err)
	require.Equal(t, models.StatusEnviado, doc.Status)
	require.Equal(t, 1, doc.Version)
	require.NotNil(t, doc.TeachingLoadID)
	require.Equal(t, "load-1", *doc.TeachingLoadID)
	require.Len(t, storage.saved, 1)
	require.Len(t, audit.logs, 1)
}

func TestDocumentServiceUploadFileTooLarge(t *testing.T) {
	svc := newDocumentServiceFixture(&documentStoreStub{}, &storageStub{}, nil)

	loadID := "load-1"
	_, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID:  "del-plan",
		TeachingLoadID: &loadID,
	}, uploadFixture("plan.pdf", 2048), docenteClaims())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrFileTooLarge.Code, appErr.Code)
}

func TestDocumentServiceUploadWithoutAuditSink(t *testing.T) {
	store := &documentStoreStub{}
	storage := &storageStub{}
	svc := newDocumentServiceFixture(store, storage, nil)

	doc, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID: "del-free",
	}, uploadFixture("informe.pdf", 100), docenteClaims())
	require.NoError(t, err)
	require.Equal(t, models.StatusEnviado, doc.Status)
	require.Len(t, storage.saved, 1)
}

func TestDocumentServiceUploadExtensionBlocked(t *testing.T) {
	svc := newDocumentServiceFixture(&documentStoreStub{}, &storageStub{}, nil)

	loadID := "load-1"
	_, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID:  "del-plan",
		TeachingLoadID: &loadID,
	}, uploadFixture("plan.exe", 100), docenteClaims())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrExtensionBlocked.Code, appErr.Code)
}

func TestDocumentServiceUploadRequiresLoadForSubjectType(t *testing.T) {
	svc := newDocumentServiceFixture(&documentStoreStub{}, &storageStub{}, nil)

	_, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID: "del-plan",
	}, uploadFixture("plan.pdf", 100), docenteClaims())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestDocumentServiceUploadRejectsForeignLoad(t *testing.T) {
	svc := newDocumentServiceFixture(&documentStoreStub{}, &storageStub{}, nil)

	loadID := "load-x"
	_, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID:  "del-plan",
		TeachingLoadID: &loadID,
	}, uploadFixture("plan.pdf", 100), docenteClaims())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDocumentServiceUploadDropsLoadForGeneralType(t *testing.T) {
	store := &documentStoreStub{}
	svc := newDocumentServiceFixture(store, &storageStub{}, nil)

	loadID := "load-1"
	doc, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID:  "del-free",
		TeachingLoadID: &loadID,
	}, uploadFixture("informe.pdf", 100), docenteClaims())
	require.NoError(t, err)
	require.Nil(t, doc.TeachingLoadID, "general types never carry a load reference")
}

func TestDocumentServiceUploadCompensatesOnInsertFailure(t *testing.T) {
	store := &documentStoreStub{createErr: errors.New("insert failed")}
	storage := &storageStub{}
	svc := newDocumentServiceFixture(store, storage, nil)

	loadID := "load-1"
	_, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID:  "del-plan",
		TeachingLoadID: &loadID,
	}, uploadFixture("plan.pdf", 100), docenteClaims())
	require.Error(t, err)
	require.Len(t, storage.saved, 1)
	require.Equal(t, storage.saved, storage.deleted, "stored file removed after failed insert")
}

func TestDocumentServiceUploadResubmissionChainsVersions(t *testing.T) {
	store := &documentStoreStub{chain: []models.Document{
		{ID: "doc-1", Status: models.StatusObservado, Version: 1},
	}}
	svc := newDocumentServiceFixture(store, &storageStub{}, nil)

	loadID := "load-1"
	doc, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID:  "del-plan",
		TeachingLoadID: &loadID,
	}, uploadFixture("plan_v2.pdf", 100), docenteClaims())
	require.NoError(t, err)
	require.Equal(t, 2, doc.Version)
	require.NotNil(t, doc.ParentDocumentID)
	require.Equal(t, "doc-1", *doc.ParentDocumentID)
}

func TestDocumentServiceUploadBlockedAfterApproval(t *testing.T) {
	store := &documentStoreStub{chain: []models.Document{
		{ID: "doc-1", Status: models.StatusAprobado, Version: 1},
	}}
	svc := newDocumentServiceFixture(store, &storageStub{}, nil)

	loadID := "load-1"
	_, err := svc.Upload(context.Background(), dto.UploadDocumentRequest{
		DeliverableID:  "del-plan",
		TeachingLoadID: &loadID,
	}, uploadFixture("plan.pdf", 100), docenteClaims())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestDocumentServiceReviewTransitions(t *testing.T) {
	store := &documentStoreStub{byID: map[string]*models.Document{
		"doc-sent":     {ID: "doc-sent", TeacherID: "teacher-1", Status: models.StatusEnviado},
		"doc-approved": {ID: "doc-approved", TeacherID: "teacher-1", Status: models.StatusAprobado},
	}}
	svc := newDocumentServiceFixture(store, &storageStub{}, &auditStub{})

	// Direct approval from ENVIADO is allowed.
	doc, err := svc.Review(context.Background(), "doc-sent", dto.ReviewDocumentRequest{Status: "APROBADO"}, vicerrectorClaims())
	require.NoError(t, err)
	require.Equal(t, models.StatusAprobado, doc.Status)
	require.NotNil(t, doc.ReviewedAt)

	// Returning without a comment is rejected.
	_, err = svc.Review(context.Background(), "doc-sent", dto.ReviewDocumentRequest{Status: "OBSERVADO"}, vicerrectorClaims())
	require.Error(t, err)

	// Approved documents are terminal.
	_, err = svc.Review(context.Background(), "doc-approved", dto.ReviewDocumentRequest{Status: "RECHAZADO"}, vicerrectorClaims())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInvalidStatus.Code, appErr.Code)

	// Docentes cannot review.
	_, err = svc.Review(context.Background(), "doc-sent", dto.ReviewDocumentRequest{Status: "APROBADO"}, docenteClaims())
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDocumentServiceGetEnforcesOwnership(t *testing.T) {
	store := &documentStoreStub{byID: map[string]*models.Document{
		"doc-1": {ID: "doc-1", TeacherID: "teacher-2", Status: models.StatusEnviado},
	}}
	svc := newDocumentServiceFixture(store, &storageStub{}, nil)

	_, err := svc.Get(context.Background(), "doc-1", docenteClaims())
	require.Error(t, err)

	doc, err := svc.Get(context.Background(), "doc-1", vicerrectorClaims())
	require.NoError(t, err)
	require.Equal(t, "doc-1", doc.ID)
}
