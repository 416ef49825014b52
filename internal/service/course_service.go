package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/doc-review-api/internal/models"
	"github.com/noah-isme/doc-review-api/internal/repository"
	appErrors "github.com/noah-isme/doc-review-api/pkg/errors"
)

type courseStore interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	CreateCourse(ctx context.Context, course *models.Course) error
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
	PairExists(ctx context.Context, courseID, subjectID string) (bool, error)
	CreatePair(ctx context.Context, pair *models.CourseSubject) error
	ListPairs(ctx context.Context) ([]models.CourseSubjectDetail, error)
}

// CreateCourseRequest registers a course group.
type CreateCourseRequest struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level"`
}

// CreateSubjectRequest registers a subject.
type CreateSubjectRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// CreatePairRequest binds a subject to a course.
type CreatePairRequest struct {
	CourseID  string `json:"course_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// CourseService manages the course and subject catalog.
type CourseService struct {
	repo      courseStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService creates a service instance.
func NewCourseService(repo courseStore, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// ListCourses returns the course catalog.
func (s *CourseService) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// CreateCourse registers a new course group.
func (s *CourseService) CreateCourse(ctx context.Context, req CreateCourseRequest, actor *models.JWTClaims) (*models.Course, error) {
	if err := s.requireVicerrector(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Name: strings.TrimSpace(req.Name), Level: strings.TrimSpace(req.Level)}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// ListSubjects returns the subject catalog.
func (s *CourseService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.repo.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// CreateSubject registers a new subject.
func (s *CourseService) CreateSubject(ctx context.Context, req CreateSubjectRequest, actor *models.JWTClaims) (*models.Subject, error) {
	if err := s.requireVicerrector(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{Code: strings.ToUpper(strings.TrimSpace(req.Code)), Name: strings.TrimSpace(req.Name)}
	if err := s.repo.CreateSubject(ctx, subject); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// ListPairs returns course-subject pairs with display names.
func (s *CourseService) ListPairs(ctx context.Context) ([]models.CourseSubjectDetail, error) {
	pairs, err := s.repo.ListPairs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course subject pairs")
	}
	return pairs, nil
}

// CreatePair binds a subject to a course once.
func (s *CourseService) CreatePair(ctx context.Context, req CreatePairRequest, actor *models.JWTClaims) (*models.CourseSubject, error) {
	if err := s.requireVicerrector(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pair payload")
	}
	exists, err := s.repo.PairExists(ctx, req.CourseID, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pair uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject already bound to this course")
	}
	pair := &models.CourseSubject{CourseID: req.CourseID, SubjectID: req.SubjectID}
	if err := s.repo.CreatePair(ctx, pair); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject already bound to this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course subject pair")
	}
	return pair, nil
}

func (s *CourseService) requireVicerrector(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleVicerrector {
		return appErrors.ErrForbidden
	}
	return nil
}
