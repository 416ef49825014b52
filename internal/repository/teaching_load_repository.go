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

// TeachingLoadRepository persists docente teaching-load assignments.
type TeachingLoadRepository struct {
	db *sqlx.DB
}

// NewTeachingLoadRepository constructs the repository.
func NewTeachingLoadRepository(db *sqlx.DB) *TeachingLoadRepository {
	return &TeachingLoadRepository{db: db}
}

// ListByTeacherAndPeriod returns the active loads of a docente in a period.
func (r *TeachingLoadRepository) ListByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) ([]models.TeachingLoadDetail, error) {
	const query = `
SELECT tl.id, tl.teacher_id, tl.course_subject_id, tl.period_id, tl.weekly_hours, tl.active, tl.created_at,
       c.name AS course_name, s.name AS subject_name, p.name AS period_name
FROM teaching_loads tl
JOIN course_subjects cs ON cs.id = tl.course_subject_id
JOIN courses c ON c.id = cs.course_id
JOIN subjects s ON s.id = cs.subject_id
JOIN periods p ON p.id = tl.period_id
WHERE tl.teacher_id = $1 AND tl.period_id = $2 AND tl.active = TRUE
ORDER BY c.name ASC, s.name ASC`
	var loads []models.TeachingLoadDetail
	if err := r.db.SelectContext(ctx, &loads, query, teacherID, periodID); err != nil {
		return nil, fmt.Errorf("list teaching loads: %w", err)
	}
	return loads, nil
}

// ListByPeriod returns every active load of a period with teacher names.
func (r *TeachingLoadRepository) ListByPeriod(ctx context.Context, periodID string) ([]models.TeachingLoadDetail, error) {
	const query = `
SELECT tl.id, tl.teacher_id, tl.course_subject_id, tl.period_id, tl.weekly_hours, tl.active, tl.created_at,
       c.name AS course_name, s.name AS subject_name, p.name AS period_name,
       TRIM(pr.apellidos || ' ' || pr.nombres) AS teacher_name
FROM teaching_loads tl
JOIN course_subjects cs ON cs.id = tl.course_subject_id
JOIN courses c ON c.id = cs.course_id
JOIN subjects s ON s.id = cs.subject_id
JOIN periods p ON p.id = tl.period_id
JOIN profiles pr ON pr.user_id = tl.teacher_id
WHERE tl.period_id = $1 AND tl.active = TRUE
ORDER BY teacher_name ASC, c.name ASC`
	var loads []models.TeachingLoadDetail
	if err := r.db.SelectContext(ctx, &loads, query, periodID); err != nil {
		return nil, fmt.Errorf("list period teaching loads: %w", err)
	}
	return loads, nil
}

// Exists checks if the (teacher, pair, period) triple already exists.
func (r *TeachingLoadRepository) Exists(ctx context.Context, teacherID, courseSubjectID, periodID string) (bool, error) {
	const query = `SELECT 1 FROM teaching_loads WHERE teacher_id = $1 AND course_subject_id = $2 AND period_id = $3 AND active = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, courseSubjectID, periodID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teaching load: %w", err)
	}
	return true, nil
}

// FindByID loads one teaching load with display names.
func (r *TeachingLoadRepository) FindByID(ctx context.Context, id string) (*models.TeachingLoadDetail, error) {
	const query = `
SELECT tl.id, tl.teacher_id, tl.course_subject_id, tl.period_id, tl.weekly_hours, tl.active, tl.created_at,
       c.name AS course_name, s.name AS subject_name, p.name AS period_name
FROM teaching_loads tl
JOIN course_subjects cs ON cs.id = tl.course_subject_id
JOIN courses c ON c.id = cs.course_id
JOIN subjects s ON s.id = cs.subject_id
JOIN periods p ON p.id = tl.period_id
WHERE tl.id = $1`
	var load models.TeachingLoadDetail
	if err := r.db.GetContext(ctx, &load, query, id); err != nil {
		return nil, err
	}
	return &load, nil
}

// Create inserts a new teaching load.
func (r *TeachingLoadRepository) Create(ctx context.Context, load *models.TeachingLoad) error {
	if load.ID == "" {
		load.ID = uuid.NewString()
	}
	if load.CreatedAt.IsZero() {
		load.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teaching_loads (id, teacher_id, course_subject_id, period_id, weekly_hours, active, created_at)
		VALUES (:id, :teacher_id, :course_subject_id, :period_id, :weekly_hours, :active, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, load); err != nil {
		return fmt.Errorf("create teaching load: %w", err)
	}
	return nil
}

// Deactivate soft-removes a teaching load.
func (r *TeachingLoadRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE teaching_loads SET active = FALSE WHERE id = $1 AND active = TRUE`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate teaching load: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deactivated load rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByTeacherAndPeriod returns the number of active loads of a docente.
func (r *TeachingLoadRepository) CountByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) (int, error) {
	const query = `SELECT COUNT(*) FROM teaching_loads WHERE teacher_id = $1 AND period_id = $2 AND active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID, periodID); err != nil {
		return 0, fmt.Errorf("count teaching loads: %w", err)
	}
	return count, nil
}
