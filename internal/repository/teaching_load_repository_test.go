package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/doc-review-api/internal/models"
)

func TestTeachingLoadRepositoryListByTeacherAndPeriod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeachingLoadRepository(db)
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "course_subject_id", "period_id", "weekly_hours", "active", "created_at", "course_name", "subject_name", "period_name"}).
		AddRow("load-1", "teacher-1", "pair-1", "period-1", 6, true, time.Now(), "Octavo A", "Matematica", "2026-2027")
	mock.ExpectQuery(regexp.QuoteMeta("FROM teaching_loads tl")).
		WithArgs("teacher-1", "period-1").
		WillReturnRows(rows)

	loads, err := repo.ListByTeacherAndPeriod(context.Background(), "teacher-1", "period-1")
	require.NoError(t, err)
	require.Len(t, loads, 1)
	require.Equal(t, "Matematica", loads[0].SubjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingLoadRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeachingLoadRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teaching_loads")).
		WithArgs("teacher-1", "pair-1", "period-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "teacher-1", "pair-1", "period-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teaching_loads")).
		WithArgs("teacher-2", "pair-1", "period-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.Exists(context.Background(), "teacher-2", "pair-1", "period-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingLoadRepositoryCreateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewTeachingLoadRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teaching_loads")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	load := &models.TeachingLoad{
		TeacherID:       "teacher-1",
		CourseSubjectID: "pair-1",
		PeriodID:        "period-1",
		WeeklyHours:     4,
		Active:          true,
	}
	require.NoError(t, repo.Create(context.Background(), load))
	require.NotEmpty(t, load.ID)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teaching_loads SET active = FALSE")).
		WithArgs(load.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Deactivate(context.Background(), load.ID))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teaching_loads SET active = FALSE")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Deactivate(context.Background(), "missing"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
