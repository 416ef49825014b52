package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/doc-review-api/internal/models"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type documentTypeStore interface {
	List(ctx context.Context, activeOnly bool) ([]models.DocumentType, error)
	FindByID(ctx context.Context, id string) (*models.DocumentType, error)
	Create(ctx context.Context, docType *models.DocumentType) error
	Update(ctx context.Context, docType *models.DocumentType) error
}

// SaveDocumentTypeRequest creates or updates a document type definition.
type SaveDocumentTypeRequest struct {
	Name              string   `json:"name" validate:"required"`
	RequiresSubject   bool     `json:"requires_subject"`
	RequiresReview    bool     `json:"requires_review"`
	AllowedExtensions []string `json:"allowed_extensions"`
	ExtensionsLabel   string   `json:"extensions_label"`
	Active            *bool    `json:"active,omitempty"`
}

// DocumentTypeService manages document type definitions.
type DocumentTypeService struct {
	repo      documentTypeStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentTypeService creates a service instance.
func NewDocumentTypeService(repo documentTypeStore, validate *validator.Validate, logger *zap.Logger) *DocumentTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentTypeService{repo: repo, validator: validate, logger: logger}
}

// List returns document types. Docentes only see active ones.
func (s *DocumentTypeService) List(ctx context.Context, actor *models.JWTClaims) ([]models.DocumentType, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	activeOnly := actor.Role != models.RoleVicerrector
	types, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document types")
	}
	return types, nil
}

// Get returns one document type.
func (s *DocumentTypeService) Get(ctx context.Context, id string) (*models.DocumentType, error) {
	docType, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}
	return docType, nil
}

// Create registers a new document type.
func (s *DocumentTypeService) Create(ctx context.Context, req SaveDocumentTypeRequest, actor *models.JWTClaims) (*models.DocumentType, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document type payload")
	}

	docType := &models.DocumentType{
		Name:              strings.TrimSpace(req.Name),
		RequiresSubject:   req.RequiresSubject,
		RequiresReview:    req.RequiresReview,
		AllowedExtensions: pq.StringArray(req.AllowedExtensions),
		ExtensionsLabel:   strings.TrimSpace(req.ExtensionsLabel),
		Active:            true,
	}
	if err := s.repo.Create(ctx, docType); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document type")
	}
	return docType, nil
}

// Update modifies an existing type. The subject requirement is frozen once
// set so existing obligation keys stay valid.
func (s *DocumentTypeService) Update(ctx context.Context, id string, req SaveDocumentTypeRequest, actor *models.JWTClaims) (*models.DocumentType, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document type payload")
	}

	docType, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequiresSubject != docType.RequiresSubject {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "the subject requirement of a type cannot change")
	}

	docType.Name = strings.TrimSpace(req.Name)
	docType.RequiresReview = req.RequiresReview
	docType.AllowedExtensions = pq.StringArray(req.AllowedExtensions)
	docType.ExtensionsLabel = strings.TrimSpace(req.ExtensionsLabel)
	if req.Active != nil {
		docType.Active = *req.Active
	}
	if err := s.repo.Update(ctx, docType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document type")
	}
	return docType, nil
}
