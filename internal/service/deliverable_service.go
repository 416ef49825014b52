package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/doc-review-api/internal/models"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type deliverableStore interface {
	List(ctx context.Context, filter models.DeliverableFilter) ([]models.DeliverableDetail, error)
	FindByID(ctx context.Context, id string) (*models.Deliverable, error)
	Create(ctx context.Context, deliverable *models.Deliverable) error
	Update(ctx context.Context, deliverable *models.Deliverable) error
	Deactivate(ctx context.Context, id string) error
	HasDocuments(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type stageReader interface {
	FindStageByID(ctx context.Context, id string) (*models.Stage, error)
}

// SaveDeliverableRequest creates or updates a scheduled deliverable.
type SaveDeliverableRequest struct {
	Title          string    `json:"title" validate:"required"`
	DocumentTypeID string    `json:"document_type_id" validate:"required"`
	StageID        string    `json:"stage_id" validate:"required"`
	OpensAt        time.Time `json:"opens_at" validate:"required"`
	DueAt          time.Time `json:"due_at" validate:"required"`
	Mandatory      bool      `json:"mandatory"`
}

// DeliverableService manages scheduled deliverables.
type DeliverableService struct {
	repo      deliverableStore
	types     documentTypeReader
	stages    stageReader
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDeliverableService creates a service instance.
func NewDeliverableService(repo deliverableStore, types documentTypeReader, stages stageReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *DeliverableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliverableService{
		repo:      repo,
		types:     types,
		stages:    stages,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// List returns deliverables for a period or stage.
func (s *DeliverableService) List(ctx context.Context, filter models.DeliverableFilter) ([]models.DeliverableDetail, error) {
	deliverables, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deliverables")
	}
	return deliverables, nil
}

// Create registers a new deliverable under a stage.
func (s *DeliverableService) Create(ctx context.Context, req SaveDeliverableRequest, actor *models.JWTClaims) (*models.Deliverable, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validateSchedule(req); err != nil {
		return nil, err
	}

	docType, err := s.types.FindByID(ctx, req.DocumentTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}
	if !docType.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "document type is inactive")
	}
	stage, err := s.stages.FindStageByID(ctx, req.StageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "stage not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stage")
	}

	deliverable := &models.Deliverable{
		Title:          req.Title,
		DocumentTypeID: docType.ID,
		StageID:        stage.ID,
		PeriodID:       stage.PeriodID,
		OpensAt:        req.OpensAt,
		DueAt:          req.DueAt,
		Mandatory:      req.Mandatory,
		Active:         true,
	}
	if err := s.repo.Create(ctx, deliverable); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create deliverable")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDeliverableSave,
		Resource:   "deliverable",
		ResourceID: &deliverable.ID,
	})
	return deliverable, nil
}

// Update modifies schedule attributes of a deliverable.
func (s *DeliverableService) Update(ctx context.Context, id string, req SaveDeliverableRequest, actor *models.JWTClaims) (*models.Deliverable, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validateSchedule(req); err != nil {
		return nil, err
	}

	deliverable, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "deliverable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deliverable")
	}

	if deliverable.DocumentTypeID != req.DocumentTypeID {
		hasDocs, err := s.repo.HasDocuments(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check deliverable documents")
		}
		if hasDocs {
			return nil, appErrors.Clone(appErrors.ErrHasDependents, "cannot change the type of a deliverable with submissions")
		}
		if _, err := s.types.FindByID(ctx, req.DocumentTypeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "document type not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
		}
		deliverable.DocumentTypeID = req.DocumentTypeID
	}

	deliverable.Title = req.Title
	deliverable.OpensAt = req.OpensAt
	deliverable.DueAt = req.DueAt
	deliverable.Mandatory = req.Mandatory
	if err := s.repo.Update(ctx, deliverable); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "deliverable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update deliverable")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDeliverableSave,
		Resource:   "deliverable",
		ResourceID: &deliverable.ID,
	})
	return deliverable, nil
}

// Remove deletes a deliverable. With submissions attached it is only
// deactivated so history stays reachable.
func (s *DeliverableService) Remove(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return appErrors.ErrForbidden
	}

	hasDocs, err := s.repo.HasDocuments(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check deliverable documents")
	}
	if hasDocs {
		if err := s.repo.Deactivate(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "deliverable not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate deliverable")
		}
	} else {
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "deliverable not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete deliverable")
		}
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionDeliverableSave,
		Resource:   "deliverable",
		ResourceID: &id,
		NewValues:  []byte(`{"removed":true}`),
	})
	return nil
}

func (s *DeliverableService) validateSchedule(req SaveDeliverableRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid deliverable payload")
	}
	if !req.DueAt.After(req.OpensAt) {
		return appErrors.Clone(appErrors.ErrValidation, "due_at must be after opens_at")
	}
	return nil
}

func (s *DeliverableService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "deliverable-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create deliverable audit", zap.Error(err))
	}
}
