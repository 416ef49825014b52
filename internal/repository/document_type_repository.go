package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/doc-review-api/internal/models"
)

// DocumentTypeRepository persists document type definitions.
type DocumentTypeRepository struct {
	db *sqlx.DB
}

// NewDocumentTypeRepository constructs the repository.
func NewDocumentTypeRepository(db *sqlx.DB) *DocumentTypeRepository {
	return &DocumentTypeRepository{db: db}
}

// List returns document types, optionally only active ones.
func (r *DocumentTypeRepository) List(ctx context.Context, activeOnly bool) ([]models.DocumentType, error) {
	query := `SELECT id, name, requires_subject, requires_review, allowed_extensions, extensions_label, active, created_at, updated_at FROM document_types`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name ASC`
	var types []models.DocumentType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	return types, nil
}

// FindByID loads one document type.
func (r *DocumentTypeRepository) FindByID(ctx context.Context, id string) (*models.DocumentType, error) {
	const query = `SELECT id, name, requires_subject, requires_review, allowed_extensions, extensions_label, active, created_at, updated_at FROM document_types WHERE id = $1`
	var docType models.DocumentType
	if err := r.db.GetContext(ctx, &docType, query, id); err != nil {
		return nil, err
	}
	return &docType, nil
}

// FindByIDs returns the types matching the given identifiers keyed by ID.
func (r *DocumentTypeRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.DocumentType, error) {
	result := make(map[string]models.DocumentType, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	const query = `SELECT id, name, requires_subject, requires_review, allowed_extensions, extensions_label, active, created_at, updated_at FROM document_types WHERE id = ANY($1)`
	var types []models.DocumentType
	if err := r.db.SelectContext(ctx, &types, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find document types: %w", err)
	}
	for _, docType := range types {
		result[docType.ID] = docType
	}
	return result, nil
}

// Create inserts a new document type. Extensions are stored lowercase
// without the leading dot.
func (r *DocumentTypeRepository) Create(ctx context.Context, docType *models.DocumentType) error {
	if docType.ID == "" {
		docType.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if docType.CreatedAt.IsZero() {
		docType.CreatedAt = now
	}
	docType.UpdatedAt = now
	docType.AllowedExtensions = normalizeExtensions(docType.AllowedExtensions)

	const query = `INSERT INTO document_types (id, name, requires_subject, requires_review, allowed_extensions, extensions_label, active, created_at, updated_at)
		VALUES (:id, :name, :requires_subject, :requires_review, :allowed_extensions, :extensions_label, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, docType); err != nil {
		return fmt.Errorf("create document type: %w", err)
	}
	return nil
}

// Update modifies a document type.
func (r *DocumentTypeRepository) Update(ctx context.Context, docType *models.DocumentType) error {
	docType.UpdatedAt = time.Now().UTC()
	docType.AllowedExtensions = normalizeExtensions(docType.AllowedExtensions)
	const query = `UPDATE document_types SET name = :name, requires_subject = :requires_subject, requires_review = :requires_review, allowed_extensions = :allowed_extensions, extensions_label = :extensions_label, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, docType)
	if err != nil {
		return fmt.Errorf("update document type: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated type rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func normalizeExtensions(raw pq.StringArray) pq.StringArray {
	normalized := make(pq.StringArray, 0, len(raw))
	for _, ext := range raw {
		ext = strings.ToLower(strings.TrimSpace(ext))
		ext = strings.TrimPrefix(ext, ".")
		if ext != "" {
			normalized = append(normalized, ext)
		}
	}
	return normalized
}
