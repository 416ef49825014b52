package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/doc-review-api/internal/models"
)

// CourseRepository persists courses, subjects and course-subject pairs.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListCourses returns all courses ordered by name.
func (r *CourseRepository) ListCourses(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, level, created_at FROM courses ORDER BY name ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// CreateCourse inserts a course.
func (r *CourseRepository) CreateCourse(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (id, name, level, created_at) VALUES (:id, :name, :level, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// ListSubjects returns all subjects ordered by name.
func (r *CourseRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	const query = `SELECT id, code, name, created_at FROM subjects ORDER BY name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// CreateSubject inserts a subject.
func (r *CourseRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO subjects (id, code, name, created_at) VALUES (:id, :code, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// PairExists checks whether a course-subject pair already exists.
func (r *CourseRepository) PairExists(ctx context.Context, courseID, subjectID string) (bool, error) {
	const query = `SELECT 1 FROM course_subjects WHERE course_id = $1 AND subject_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course subject pair: %w", err)
	}
	return true, nil
}

// CreatePair inserts a course-subject pair.
func (r *CourseRepository) CreatePair(ctx context.Context, pair *models.CourseSubject) error {
	if pair.ID == "" {
		pair.ID = uuid.NewString()
	}
	if pair.CreatedAt.IsZero() {
		pair.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_subjects (id, course_id, subject_id, created_at) VALUES (:id, :course_id, :subject_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pair); err != nil {
		return fmt.Errorf("create course subject pair: %w", err)
	}
	return nil
}

// FindPairByID loads one pair with display names.
func (r *CourseRepository) FindPairByID(ctx context.Context, id string) (*models.CourseSubjectDetail, error) {
	const query = `
SELECT cs.id, cs.course_id, cs.subject_id, cs.created_at,
       c.name AS course_name, s.name AS subject_name
FROM course_subjects cs
JOIN courses c ON c.id = cs.course_id
JOIN subjects s ON s.id = cs.subject_id
WHERE cs.id = $1`
	var pair models.CourseSubjectDetail
	if err := r.db.GetContext(ctx, &pair, query, id); err != nil {
		return nil, err
	}
	return &pair, nil
}

// ListPairs returns all pairs with display names.
func (r *CourseRepository) ListPairs(ctx context.Context) ([]models.CourseSubjectDetail, error) {
	const query = `
SELECT cs.id, cs.course_id, cs.subject_id, cs.created_at,
       c.name AS course_name, s.name AS subject_name
FROM course_subjects cs
JOIN courses c ON c.id = cs.course_id
JOIN subjects s ON s.id = cs.subject_id
ORDER BY c.name ASC, s.name ASC`
	var pairs []models.CourseSubjectDetail
	if err := r.db.SelectContext(ctx, &pairs, query); err != nil {
		return nil, fmt.Errorf("list course subject pairs: %w", err)
	}
	return pairs, nil
}
