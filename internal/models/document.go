package models

import (
	"strings"
	"time"
)

// DocumentStatus enumerates the review lifecycle of a submitted document.
type DocumentStatus string

const (
	StatusBorrador   DocumentStatus = "BORRADOR"
	StatusEnviado    DocumentStatus = "ENVIADO"
	StatusEnRevision DocumentStatus = "EN_REVISION"
	StatusObservado  DocumentStatus = "OBSERVADO"
	StatusAprobado   DocumentStatus = "APROBADO"
	StatusRechazado  DocumentStatus = "RECHAZADO"
)

// ParseDocumentStatus normalises a raw status string into the closed
// enumeration. Status values are validated once at the boundary.
func ParseDocumentStatus(raw string) (DocumentStatus, bool) {
	switch DocumentStatus(strings.ToUpper(strings.TrimSpace(raw))) {
	case StatusBorrador:
		return StatusBorrador, true
	case StatusEnviado:
		return StatusEnviado, true
	case StatusEnRevision:
		return StatusEnRevision, true
	case StatusObservado:
		return StatusObservado, true
	case StatusAprobado:
		return StatusAprobado, true
	case StatusRechazado:
		return StatusRechazado, true
	default:
		return "", false
	}
}

// ReviewTransitionAllowed reports whether a reviewer may move a document
// from one status to another. APROBADO is terminal; BORRADOR rows are not
// reviewable. A direct ENVIADO -> APROBADO jump is permitted: EN_REVISION
// is an optional intermediate marker, not a required step.
func ReviewTransitionAllowed(from, to DocumentStatus) bool {
	switch from {
	case StatusEnviado, StatusEnRevision, StatusObservado, StatusRechazado:
	default:
		return false
	}
	switch to {
	case StatusEnRevision, StatusAprobado, StatusObservado, StatusRechazado:
		return true
	default:
		return false
	}
}

// ActionableByTeacher reports whether the status leaves the obligation
// pending from the docente's point of view (returned or rejected items
// remain actionable; a missing document is handled by the caller).
func (s DocumentStatus) ActionableByTeacher() bool {
	return s == StatusObservado || s == StatusRechazado
}

// Document is one submitted artifact. Resubmissions create new rows linked
// through ParentDocumentID; history is append-only.
type Document struct {
	ID               string         `db:"id" json:"id"`
	TeacherID        string         `db:"teacher_id" json:"teacher_id"`
	DeliverableID    *string        `db:"deliverable_id" json:"deliverable_id,omitempty"`
	DocumentTypeID   string         `db:"document_type_id" json:"document_type_id"`
	PeriodID         string         `db:"period_id" json:"period_id"`
	TeachingLoadID   *string        `db:"teaching_load_id" json:"teaching_load_id,omitempty"`
	FileKey          string         `db:"file_key" json:"file_key"`
	OriginalName     string         `db:"original_name" json:"original_name"`
	Status           DocumentStatus `db:"status" json:"status"`
	ReviewerComment  *string        `db:"reviewer_comment" json:"reviewer_comment,omitempty"`
	TeacherComment   *string        `db:"teacher_comment" json:"teacher_comment,omitempty"`
	Version          int            `db:"version" json:"version"`
	ParentDocumentID *string        `db:"parent_document_id" json:"parent_document_id,omitempty"`
	UploadedAt       time.Time      `db:"uploaded_at" json:"uploaded_at"`
	ReviewedAt       *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// DocumentDetail enriches documents with display fields for triage views.
type DocumentDetail struct {
	Document
	TeacherName      string  `db:"teacher_name" json:"teacher_name"`
	TypeName         string  `db:"type_name" json:"type_name"`
	DeliverableTitle *string `db:"deliverable_title" json:"deliverable_title,omitempty"`
	CourseName       *string `db:"course_name" json:"course_name,omitempty"`
	SubjectName      *string `db:"subject_name" json:"subject_name,omitempty"`
}

// DocumentFilter narrows the reviewer triage listing.
type DocumentFilter struct {
	Status        DocumentStatus
	PeriodID      string
	TeacherID     string
	DeliverableID string
	Page          int
	PageSize      int
}
