package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/doc-review-api/internal/dto"
	"github.com/noah-isme/doc-review-api/internal/models"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentDetail, int, error)
	ListByDeliverableAndLoad(ctx context.Context, teacherID, deliverableID string, teachingLoadID *string) ([]models.Document, error)
	UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, reviewerComment *string, reviewedAt time.Time) error
}

type deliverableReader interface {
	FindByID(ctx context.Context, id string) (*models.Deliverable, error)
}

type documentTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.DocumentType, error)
}

type teachingLoadReader interface {
	FindByID(ctx context.Context, id string) (*models.TeachingLoadDetail, error)
}

type documentFileStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type downloadSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error)
}

// DocumentUpload carries upload metadata and the stream reader.
type DocumentUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// DocumentDownload bundles the file handle and metadata for streaming.
type DocumentDownload struct {
	File      *os.File
	Filename  string
	SizeBytes int64
	ExpiresAt time.Time
}

// DocumentServiceConfig holds upload validation parameters.
type DocumentServiceConfig struct {
	MaxFileSize int64
	APIPrefix   string
}

// DocumentService handles submissions and reviewer decisions. Submission
// history is append-only: every resubmission creates a new row chained to
// its predecessor.
type DocumentService struct {
	repo         documentStore
	deliverables deliverableReader
	types        documentTypeReader
	loads        teachingLoadReader
	storage      documentFileStorage
	signer       downloadSigner
	audit        auditLogger
	logger       *zap.Logger
	cfg          DocumentServiceConfig
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(repo documentStore, deliverables deliverableReader, types documentTypeReader, loads teachingLoadReader, storage documentFileStorage, signer downloadSigner, audit auditLogger, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &DocumentService{
		repo:         repo,
		deliverables: deliverables,
		types:        types,
		loads:        loads,
		storage:      storage,
		signer:       signer,
		audit:        audit,
		logger:       logger,
		cfg:          cfg,
	}
}

// Upload stores the file and records the submission. If the row insert
// fails after the file was written, the file is removed again.
func (s *DocumentService) Upload(ctx context.Context, req dto.UploadDocumentRequest, upload DocumentUpload, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleDocente {
		return nil, appErrors.ErrForbidden
	}
	if strings.TrimSpace(req.DeliverableID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deliverable_id is required")
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}

	deliverable, err := s.deliverables.FindByID(ctx, req.DeliverableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "deliverable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deliverable")
	}
	if !deliverable.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "deliverable is no longer active")
	}
	if time.Now().UTC().Before(deliverable.OpensAt) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "deliverable is not open yet")
	}

	docType, err := s.types.FindByID(ctx, deliverable.DocumentTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "deliverable references an unknown document type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(upload.Filename)), ".")
	if !docType.AcceptsExtension(ext) {
		return nil, appErrors.Clone(appErrors.ErrExtensionBlocked, fmt.Sprintf("extension %q not allowed, expected %s", ext, docType.ExtensionsLabel))
	}

	loadRef, err := s.resolveLoadRef(ctx, docType, deliverable, req.TeachingLoadID, actor.UserID)
	if err != nil {
		return nil, err
	}

	chain, err := s.repo.ListByDeliverableAndLoad(ctx, actor.UserID, deliverable.ID, loadRef)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission history")
	}
	version := 1
	var parentID *string
	if len(chain) > 0 {
		head := chain[0]
		if head.Status == models.StatusAprobado {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an approved submission already exists for this deliverable")
		}
		version = head.Version + 1
		id := head.ID
		parentID = &id
	}

	fileKey := s.generateFileKey(deliverable.ID, upload.Filename)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	storedKey, err := s.storage.SaveStream(fileKey, upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist uploaded file")
	}

	status := models.StatusEnviado
	if !docType.RequiresReview {
		status = models.StatusAprobado
	}
	doc := &models.Document{
		TeacherID:        actor.UserID,
		DeliverableID:    &deliverable.ID,
		DocumentTypeID:   docType.ID,
		PeriodID:         deliverable.PeriodID,
		TeachingLoadID:   loadRef,
		FileKey:          storedKey,
		OriginalName:     filepath.Base(upload.Filename),
		Status:           status,
		TeacherComment:   req.TeacherComment,
		Version:          version,
		ParentDocumentID: parentID,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		// File already on disk; remove it so no orphan remains.
		if delErr := s.storage.Delete(storedKey); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.Error(delErr), zap.String("file_key", storedKey))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record submission")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &doc.TeacherID,
		Action:     models.AuditActionDocumentUpload,
		Resource:   "document",
		ResourceID: &doc.ID,
		NewValues:  []byte(fmt.Sprintf(`{"deliverable_id":"%s","version":%d}`, deliverable.ID, doc.Version)),
	})
	return doc, nil
}

// Review applies a reviewer decision. Approved submissions are terminal;
// returned and rejected ones reopen the obligation for the docente.
func (s *DocumentService) Review(ctx context.Context, id string, req dto.ReviewDocumentRequest, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return nil, appErrors.ErrForbidden
	}
	target, ok := models.ParseDocumentStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unknown status %q", req.Status))
	}

	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if !models.ReviewTransitionAllowed(doc.Status, target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("cannot move document from %s to %s", doc.Status, target))
	}
	if (target == models.StatusObservado || target == models.StatusRechazado) && (req.Comment == nil || strings.TrimSpace(*req.Comment) == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a comment is required when returning or rejecting")
	}

	reviewedAt := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, doc.ID, target, req.Comment, reviewedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document status")
	}

	old := doc.Status
	doc.Status = target
	doc.ReviewerComment = req.Comment
	doc.ReviewedAt = &reviewedAt

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDocumentReview,
		Resource:   "document",
		ResourceID: &doc.ID,
		OldValues:  []byte(fmt.Sprintf(`{"status":"%s"}`, old)),
		NewValues:  []byte(fmt.Sprintf(`{"status":"%s"}`, target)),
	})
	return doc, nil
}

// List returns the reviewer triage listing.
func (s *DocumentService) List(ctx context.Context, query dto.DocumentListQuery, actor *models.JWTClaims) ([]models.DocumentDetail, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return nil, 0, appErrors.ErrForbidden
	}
	filter := models.DocumentFilter{
		PeriodID:      query.PeriodID,
		TeacherID:     query.TeacherID,
		DeliverableID: query.DeliverableID,
		Page:          query.Page,
		PageSize:      query.PageSize,
	}
	if query.Status != "" {
		status, ok := models.ParseDocumentStatus(query.Status)
		if !ok {
			return nil, 0, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("unknown status %q", query.Status))
		}
		filter.Status = status
	}
	docs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	return docs, total, nil
}

// Get loads one document enforcing ownership.
func (s *DocumentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if actor.Role != models.RoleVicerrector && doc.TeacherID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return doc, nil
}

// GetDownloadURL generates a short-lived signed URL for the stored file.
func (s *DocumentService) GetDownloadURL(ctx context.Context, id string, actor *models.JWTClaims) (string, error) {
	if s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	doc, err := s.Get(ctx, id, actor)
	if err != nil {
		return "", err
	}
	token, _, err := s.signer.Generate(doc.ID, doc.FileKey)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return fmt.Sprintf("%s/documents/%s/download?token=%s", base, doc.ID, token), nil
}

// Download validates the token and opens the stored file.
func (s *DocumentService) Download(ctx context.Context, id, token string, actor *models.JWTClaims) (*DocumentDownload, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signer unavailable")
	}
	doc, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	docID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired token")
	}
	if docID != doc.ID || relPath != doc.FileKey {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open stored file")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file metadata")
	}
	return &DocumentDownload{
		File:      file,
		Filename:  doc.OriginalName,
		SizeBytes: info.Size(),
		ExpiresAt: expiresAt,
	}, nil
}

// resolveLoadRef enforces the subject requirement of the document type:
// subject-bound types must name one of the docente's own loads for the
// deliverable's period, other types never carry a load reference.
func (s *DocumentService) resolveLoadRef(ctx context.Context, docType *models.DocumentType, deliverable *models.Deliverable, ref *string, teacherID string) (*string, error) {
	if !docType.RequiresSubject {
		return nil, nil
	}
	if ref == nil || strings.TrimSpace(*ref) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teaching_load_id is required for this document type")
	}
	load, err := s.loads.FindByID(ctx, strings.TrimSpace(*ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teaching load not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teaching load")
	}
	if load.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teaching load belongs to another docente")
	}
	if load.PeriodID != deliverable.PeriodID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teaching load belongs to a different period")
	}
	if !load.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "teaching load is inactive")
	}
	id := load.ID
	return &id, nil
}

func (s *DocumentService) generateFileKey(deliverableID, original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("documents/%s/%d_%s%s", deliverableID, time.Now().Unix(), randomSuffix(), ext)
}

func randomSuffix() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func (s *DocumentService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "document-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create document audit", zap.Error(err))
	}
}
