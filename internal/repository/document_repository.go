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

// DocumentRepository persists submitted documents. Rows are append-only:
// resubmissions insert new rows instead of mutating existing ones, only the
// review status and comments ever change in place.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, teacher_id, deliverable_id, document_type_id, period_id, teaching_load_id, file_key, original_name, status, reviewer_comment, teacher_comment, version, parent_document_id, uploaded_at, reviewed_at`

// Create inserts a new document row.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	if doc.Version < 1 {
		doc.Version = 1
	}
	const query = `INSERT INTO documents (id, teacher_id, deliverable_id, document_type_id, period_id, teaching_load_id, file_key, original_name, status, reviewer_comment, teacher_comment, version, parent_document_id, uploaded_at, reviewed_at)
		VALUES (:id, :teacher_id, :deliverable_id, :document_type_id, :period_id, :teaching_load_id, :file_key, :original_name, :status, :reviewer_comment, :teacher_comment, :version, :parent_document_id, :uploaded_at, :reviewed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID loads one document.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1`, documentColumns)
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListByTeacherAndPeriod returns every document a docente submitted in a
// period, newest first. Reconciliation works over this full history.
func (r *DocumentRepository) ListByTeacherAndPeriod(ctx context.Context, teacherID, periodID string) ([]models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE teacher_id = $1 AND period_id = $2 ORDER BY uploaded_at DESC, version DESC, id DESC`, documentColumns)
	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, teacherID, periodID); err != nil {
		return nil, fmt.Errorf("list teacher documents: %w", err)
	}
	return docs, nil
}

// ListByDeliverableAndLoad returns the submission chain for one obligation,
// newest first. Used to derive the next version on resubmission.
func (r *DocumentRepository) ListByDeliverableAndLoad(ctx context.Context, teacherID, deliverableID string, teachingLoadID *string) ([]models.Document, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM documents WHERE teacher_id = $1 AND deliverable_id = $2`, documentColumns))
	args := []interface{}{teacherID, deliverableID}
	if teachingLoadID != nil {
		args = append(args, *teachingLoadID)
		builder.WriteString(fmt.Sprintf(" AND teaching_load_id = $%d", len(args)))
	} else {
		builder.WriteString(" AND teaching_load_id IS NULL")
	}
	builder.WriteString(" ORDER BY version DESC, uploaded_at DESC")

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list obligation documents: %w", err)
	}
	return docs, nil
}

// List returns detail rows for the reviewer triage view with a total count.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentDetail, int, error) {
	base := `
FROM documents d
JOIN document_types dt ON dt.id = d.document_type_id
JOIN profiles pr ON pr.user_id = d.teacher_id
LEFT JOIN deliverables dl ON dl.id = d.deliverable_id
LEFT JOIN teaching_loads tl ON tl.id = d.teaching_load_id
LEFT JOIN course_subjects cs ON cs.id = tl.course_subject_id
LEFT JOIN courses c ON c.id = cs.course_id
LEFT JOIN subjects s ON s.id = cs.subject_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("d.status = $%d", len(args)))
	}
	if filter.PeriodID != "" {
		args = append(args, filter.PeriodID)
		conditions = append(conditions, fmt.Sprintf("d.period_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("d.teacher_id = $%d", len(args)))
	}
	if filter.DeliverableID != "" {
		args = append(args, filter.DeliverableID)
		conditions = append(conditions, fmt.Sprintf("d.deliverable_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`
SELECT d.id, d.teacher_id, d.deliverable_id, d.document_type_id, d.period_id, d.teaching_load_id, d.file_key, d.original_name, d.status, d.reviewer_comment, d.teacher_comment, d.version, d.parent_document_id, d.uploaded_at, d.reviewed_at,
       TRIM(pr.apellidos || ' ' || pr.nombres) AS teacher_name,
       dt.name AS type_name, dl.title AS deliverable_title,
       c.name AS course_name, s.name AS subject_name
%s ORDER BY d.uploaded_at DESC LIMIT %d OFFSET %d`, base, size, offset)

	var docs []models.DocumentDetail
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return docs, total, nil
}

// UpdateStatus applies a review decision, stamping reviewed_at with the
// decision time. The comment may be nil.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, reviewerComment *string, reviewedAt time.Time) error {
	const query = `UPDATE documents SET status = $2, reviewer_comment = $3, reviewed_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, reviewerComment, reviewedAt)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reviewed document rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus returns how many documents sit in each status for a period.
func (r *DocumentRepository) CountByStatus(ctx context.Context, periodID string) (map[models.DocumentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM documents WHERE period_id = $1 GROUP BY status`
	rows := []struct {
		Status models.DocumentStatus `db:"status"`
		Total  int                   `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, periodID); err != nil {
		return nil, fmt.Errorf("count documents by status: %w", err)
	}
	counts := make(map[models.DocumentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
