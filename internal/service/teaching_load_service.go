package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/doc-review-api/internal/models"
	"github.com/noah-isme/doc-review-api/internal/repository"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type teachingLoadStore interface {
	ListByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) ([]models.TeachingLoadDetail, error)
	ListByPeriod(ctx context.Context, periodID string) ([]models.TeachingLoadDetail, error)
	Exists(ctx context.Context, teacherID, courseSubjectID, periodID string) (bool, error)
	FindByID(ctx context.Context, id string) (*models.TeachingLoadDetail, error)
	Create(ctx context.Context, load *models.TeachingLoad) error
	Deactivate(ctx context.Context, id string) error
}

type courseSubjectReader interface {
	FindPairByID(ctx context.Context, id string) (*models.CourseSubjectDetail, error)
}

type loadUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type loadPeriodReader interface {
	FindByID(ctx context.Context, id string) (*models.Period, error)
}

// AssignTeachingLoadRequest binds a docente to a course-subject pair.
type AssignTeachingLoadRequest struct {
	TeacherID       string `json:"teacher_id" validate:"required"`
	CourseSubjectID string `json:"course_subject_id" validate:"required"`
	PeriodID        string `json:"period_id" validate:"required"`
	WeeklyHours     int    `json:"weekly_hours" validate:"gte=0"`
}

// TeachingLoadService manages docente teaching-load assignments.
type TeachingLoadService struct {
	loads     teachingLoadStore
	pairs     courseSubjectReader
	users     loadUserReader
	periods   loadPeriodReader
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeachingLoadService creates a service instance.
func NewTeachingLoadService(loads teachingLoadStore, pairs courseSubjectReader, users loadUserReader, periods loadPeriodReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *TeachingLoadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeachingLoadService{
		loads:     loads,
		pairs:     pairs,
		users:     users,
		periods:   periods,
		audit:     audit,
		validator: validate,
		logger:    logger,
	}
}

// ListByTeacher returns the active loads of a docente in a period. Docentes
// may only see their own loads.
func (s *TeachingLoadService) ListByTeacher(ctx context.Context, teacherID, periodID string, actor *models.JWTClaims) ([]models.TeachingLoadDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector && actor.UserID != teacherID {
		return nil, appErrors.ErrForbidden
	}
	loads, err := s.loads.ListByTeacherAndPeriod(ctx, teacherID, periodID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teaching loads")
	}
	return loads, nil
}

// ListByPeriod returns every active load of a period.
func (s *TeachingLoadService) ListByPeriod(ctx context.Context, periodID string, actor *models.JWTClaims) ([]models.TeachingLoadDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return nil, appErrors.ErrForbidden
	}
	loads, err := s.loads.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list period teaching loads")
	}
	return loads, nil
}

// Assign creates a new teaching load after checking the triple is unique.
func (s *TeachingLoadService) Assign(ctx context.Context, req AssignTeachingLoadRequest, actor *models.JWTClaims) (*models.TeachingLoad, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teaching load payload")
	}

	teacher, err := s.users.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "docente not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load docente")
	}
	if teacher.Role != models.RoleDocente {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teaching loads can only be assigned to docentes")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "docente is inactive")
	}

	if _, err := s.pairs.FindPairByID(ctx, req.CourseSubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course subject pair not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course subject pair")
	}
	if _, err := s.periods.FindByID(ctx, req.PeriodID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}

	exists, err := s.loads.Exists(ctx, req.TeacherID, req.CourseSubjectID, req.PeriodID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teaching load uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "docente already carries this course and subject")
	}

	load := &models.TeachingLoad{
		TeacherID:       req.TeacherID,
		CourseSubjectID: req.CourseSubjectID,
		PeriodID:        req.PeriodID,
		WeeklyHours:     req.WeeklyHours,
		Active:          true,
	}
	if err := s.loads.Create(ctx, load); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "docente already carries this course and subject")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teaching load")
	}

	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionTeachingLoadSave,
		Resource:   "teaching_load",
		ResourceID: &load.ID,
	})
	return load, nil
}

// Remove deactivates a teaching load.
func (s *TeachingLoadService) Remove(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return appErrors.ErrForbidden
	}
	if err := s.loads.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teaching load not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teaching load")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionTeachingLoadSave,
		Resource:   "teaching_load",
		ResourceID: &id,
		NewValues:  []byte(`{"active":false}`),
	})
	return nil
}

func (s *TeachingLoadService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "teaching-load-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create teaching load audit", zap.Error(err))
	}
}
