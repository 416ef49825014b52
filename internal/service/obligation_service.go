package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/doc-review-api/internal/models"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type deliverableLister interface {
	List(ctx context.Context, filter models.DeliverableFilter) ([]models.DeliverableDetail, error)
}

type documentTypeResolver interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.DocumentType, error)
}

type teachingLoadLister interface {
	ListByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) ([]models.TeachingLoadDetail, error)
}

type teacherDocumentLister interface {
	ListByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) ([]models.Document, error)
}

type activePeriodFinder interface {
	FindByID(ctx context.Context, id string) (*models.Period, error)
	FindActive(ctx context.Context) (*models.Period, error)
}

// ObligationService computes what a docente still has to submit: it expands
// scheduled deliverables against the docente's teaching load and reconciles
// the result with the submission history.
type ObligationService struct {
	deliverables deliverableLister
	types        documentTypeResolver
	loads        teachingLoadLister
	documents    teacherDocumentLister
	periods      activePeriodFinder
	logger       *zap.Logger
}

// NewObligationService creates a service instance.
func NewObligationService(
	deliverables deliverableLister,
	types documentTypeResolver,
	loads teachingLoadLister,
	documents teacherDocumentLister,
	periods activePeriodFinder,
	logger *zap.Logger,
) *ObligationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObligationService{
		deliverables: deliverables,
		types:        types,
		loads:        loads,
		documents:    documents,
		periods:      periods,
		logger:       logger,
	}
}

// ForTeacher returns the reconciled obligation set of a docente for a
// period. An empty periodID resolves to the active period.
func (s *ObligationService) ForTeacher(ctx context.Context, teacherID, periodID string) (*models.ObligationSet, error) {
	period, err := s.resolvePeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	deliverables, err := s.deliverables.List(ctx, models.DeliverableFilter{PeriodID: period.ID, ActiveOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deliverables")
	}

	typeIDs := make([]string, 0, len(deliverables))
	seen := make(map[string]bool, len(deliverables))
	for _, deliverable := range deliverables {
		if !seen[deliverable.DocumentTypeID] {
			seen[deliverable.DocumentTypeID] = true
			typeIDs = append(typeIDs, deliverable.DocumentTypeID)
		}
	}
	types, err := s.types.FindByIDs(ctx, typeIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve document types")
	}

	loads, err := s.loads.ListByTeacherAndPeriod(ctx, teacherID, period.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching loads")
	}

	docs, err := s.documents.ListByTeacherAndPeriod(ctx, teacherID, period.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}

	obligations, dangling := ExpandObligations(deliverables, types, loads)
	if dangling > 0 {
		s.logger.Warn("deliverables reference unknown document types",
			zap.String("teacher_id", teacherID),
			zap.String("period_id", period.ID),
			zap.Int("dropped", dangling))
	}

	return &models.ObligationSet{
		Obligations:   ReconcileObligations(obligations, docs),
		DanglingTypes: dangling,
	}, nil
}

func (s *ObligationService) resolvePeriod(ctx context.Context, periodID string) (*models.Period, error) {
	if periodID == "" {
		period, err := s.periods.FindActive(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no active period")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active period")
		}
		return period, nil
	}
	period, err := s.periods.FindByID(ctx, periodID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return period, nil
}
