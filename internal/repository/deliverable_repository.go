package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/doc-review-api/internal/models"
)

// DeliverableRepository persists scheduled deliverables.
type DeliverableRepository struct {
	db *sqlx.DB
}

// NewDeliverableRepository constructs the repository.
func NewDeliverableRepository(db *sqlx.DB) *DeliverableRepository {
	return &DeliverableRepository{db: db}
}

// List returns deliverables with display fields, ordered by stage then due date.
func (r *DeliverableRepository) List(ctx context.Context, filter models.DeliverableFilter) ([]models.DeliverableDetail, error) {
	builder := strings.Builder{}
	builder.WriteString(`
SELECT d.id, d.title, d.document_type_id, d.stage_id, d.period_id, d.opens_at, d.due_at, d.mandatory, d.active, d.created_at, d.updated_at,
       dt.name AS type_name, st.name AS stage_name, st.display_order AS stage_order
FROM deliverables d
JOIN document_types dt ON dt.id = d.document_type_id
JOIN stages st ON st.id = d.stage_id`)
	args := make([]interface{}, 0, 3)
	conditions := make([]string, 0, 3)

	if filter.PeriodID != "" {
		args = append(args, filter.PeriodID)
		conditions = append(conditions, fmt.Sprintf("d.period_id = $%d", len(args)))
	}
	if filter.StageID != "" {
		args = append(args, filter.StageID)
		conditions = append(conditions, fmt.Sprintf("d.stage_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "d.active = TRUE")
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY st.display_order ASC, d.due_at ASC")

	var deliverables []models.DeliverableDetail
	if err := r.db.SelectContext(ctx, &deliverables, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	return deliverables, nil
}

// FindByID loads one deliverable.
func (r *DeliverableRepository) FindByID(ctx context.Context, id string) (*models.Deliverable, error) {
	const query = `SELECT id, title, document_type_id, stage_id, period_id, opens_at, due_at, mandatory, active, created_at, updated_at FROM deliverables WHERE id = $1`
	var deliverable models.Deliverable
	if err := r.db.GetContext(ctx, &deliverable, query, id); err != nil {
		return nil, err
	}
	return &deliverable, nil
}

// Create inserts a new deliverable.
func (r *DeliverableRepository) Create(ctx context.Context, deliverable *models.Deliverable) error {
	if deliverable.ID == "" {
		deliverable.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if deliverable.CreatedAt.IsZero() {
		deliverable.CreatedAt = now
	}
	deliverable.UpdatedAt = now
	const query = `INSERT INTO deliverables (id, title, document_type_id, stage_id, period_id, opens_at, due_at, mandatory, active, created_at, updated_at)
		VALUES (:id, :title, :document_type_id, :stage_id, :period_id, :opens_at, :due_at, :mandatory, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, deliverable); err != nil {
		return fmt.Errorf("create deliverable: %w", err)
	}
	return nil
}

// Update modifies deliverable attributes.
func (r *DeliverableRepository) Update(ctx context.Context, deliverable *models.Deliverable) error {
	deliverable.UpdatedAt = time.Now().UTC()
	const query = `UPDATE deliverables SET title = :title, document_type_id = :document_type_id, stage_id = :stage_id, opens_at = :opens_at, due_at = :due_at, mandatory = :mandatory, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, deliverable)
	if err != nil {
		return fmt.Errorf("update deliverable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated deliverable rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate soft-removes a deliverable.
func (r *DeliverableRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE deliverables SET active = FALSE, updated_at = $2 WHERE id = $1 AND active = TRUE`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate deliverable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deactivated deliverable rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasDocuments reports whether any document references the deliverable.
func (r *DeliverableRepository) HasDocuments(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM documents WHERE deliverable_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check deliverable documents: %w", err)
	}
	return true, nil
}

// Delete hard-removes a deliverable. Callers must guard with HasDocuments.
func (r *DeliverableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM deliverables WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete deliverable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted deliverable rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
