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

func TestPeriodRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE periods SET active = TRUE")).
		WithArgs("period-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE periods SET active = FALSE")).
		WithArgs(sqlmock.AnyArg(), "period-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetActive(context.Background(), "period-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositorySetActiveUnknownPeriod(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPeriodRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE periods SET active = TRUE")).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetActive(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPeriodRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "active", "created_at", "updated_at"}).
		AddRow("period-1", "2026-2027", time.Now(), time.Now().AddDate(0, 10, 0), true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE active = TRUE LIMIT 1")).
		WillReturnRows(rows)

	period, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	require.True(t, period.Active)
	require.Equal(t, "period-1", period.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryListFiltersActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewPeriodRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "active", "created_at", "updated_at"}).
		AddRow("period-1", "2026-2027", time.Now(), time.Now(), true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, start_date, end_date")).
		WithArgs(true).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	active := true
	periods, total, err := repo.List(context.Background(), models.PeriodFilter{Active: &active})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, periods, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
