package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/doc-review-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func documentColumnsList() []string {
	return []string{"id", "teacher_id", "deliverable_id", "document_type_id", "period_id", "teaching_load_id", "file_key", "original_name", "status", "reviewer_comment", "teacher_comment", "version", "parent_document_id", "uploaded_at", "reviewed_at"}
}

func TestDocumentRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO documents")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	deliverableID := "del-1"
	doc := &models.Document{
		TeacherID:      "teacher-1",
		DeliverableID:  &deliverableID,
		DocumentTypeID: "type-1",
		PeriodID:       "period-1",
		FileKey:        "uploads/doc.pdf",
		OriginalName:   "doc.pdf",
		Status:         models.StatusEnviado,
	}
	require.NoError(t, repo.Create(context.Background(), doc))
	require.NotEmpty(t, doc.ID)
	require.Equal(t, 1, doc.Version)

	rows := sqlmock.NewRows(documentColumnsList()).
		AddRow(doc.ID, doc.TeacherID, deliverableID, doc.DocumentTypeID, doc.PeriodID, nil, doc.FileKey, doc.OriginalName, string(doc.Status), nil, nil, 1, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, deliverable_id")).
		WithArgs(doc.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.ID, found.ID)
	require.Equal(t, models.StatusEnviado, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListByDeliverableAndLoad(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	loadID := "load-1"
	rows := sqlmock.NewRows(documentColumnsList()).
		AddRow("doc-2", "teacher-1", "del-1", "type-1", "period-1", loadID, "uploads/v2.pdf", "v2.pdf", "ENVIADO", nil, nil, 2, "doc-1", time.Now(), nil).
		AddRow("doc-1", "teacher-1", "del-1", "type-1", "period-1", loadID, "uploads/v1.pdf", "v1.pdf", "OBSERVADO", "fix it", nil, 1, nil, time.Now().Add(-time.Hour), nil)
	mock.ExpectQuery(regexp.QuoteMeta("AND teaching_load_id = $3")).
		WithArgs("teacher-1", "del-1", loadID).
		WillReturnRows(rows)

	docs, err := repo.ListByDeliverableAndLoad(context.Background(), "teacher-1", "del-1", &loadID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, 2, docs[0].Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListByDeliverableWithoutLoad(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	rows := sqlmock.NewRows(documentColumnsList()).
		AddRow("doc-1", "teacher-1", "del-1", "type-1", "period-1", nil, "uploads/a.pdf", "a.pdf", "ENVIADO", nil, nil, 1, nil, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("AND teaching_load_id IS NULL")).
		WithArgs("teacher-1", "del-1").
		WillReturnRows(rows)

	docs, err := repo.ListByDeliverableAndLoad(context.Background(), "teacher-1", "del-1", nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Nil(t, docs[0].TeachingLoadID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	cols := append(documentColumnsList(), "teacher_name", "type_name", "deliverable_title", "course_name", "subject_name")
	rows := sqlmock.NewRows(cols).
		AddRow("doc-1", "teacher-1", "del-1", "type-1", "period-1", nil, "uploads/a.pdf", "a.pdf", "ENVIADO", nil, nil, 1, nil, time.Now(), nil,
			"Perez Ana", "Planificacion", "Plan anual", nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT d.id, d.teacher_id")).
		WithArgs("ENVIADO", "period-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("ENVIADO", "period-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	docs, total, err := repo.List(context.Background(), models.DocumentFilter{
		Status:   models.StatusEnviado,
		PeriodID: "period-1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, docs, 1)
	require.Equal(t, "Perez Ana", docs[0].TeacherName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	comment := "incomplete annexes"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = $2")).
		WithArgs("doc-1", models.StatusObservado, &comment, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "doc-1", models.StatusObservado, &comment, time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = $2")).
		WithArgs("missing", models.StatusAprobado, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(context.Background(), "missing", models.StatusAprobado, nil, time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewDocumentRepository(db)
	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow("ENVIADO", 4).
		AddRow("APROBADO", 9)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS total FROM documents")).
		WithArgs("period-1").
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background(), "period-1")
	require.NoError(t, err)
	require.Equal(t, 4, counts[models.StatusEnviado])
	require.Equal(t, 9, counts[models.StatusAprobado])
	require.NoError(t, mock.ExpectationsWereMet())
}
