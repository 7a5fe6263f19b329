package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-sis-api/internal/models"
)

func newMarkMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sampleMark() *models.Mark {
	score := 78.0
	return &models.Mark{
		ExamSubjectID: "subject-1",
		StudentID:     "student-1",
		MarksObtained: &score,
		EnteredBy:     "teacher-1",
	}
}

func TestMarkRepositoryUpsertWritesUnderDraftLock(t *testing.T) {
	db, mock, cleanup := newMarkMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT r.is_published FROM results r`).
		WithArgs("subject-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_published"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO marks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(), sampleMark())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryUpsertRejectsPublishedResult(t *testing.T) {
	db, mock, cleanup := newMarkMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT r.is_published FROM results r`).
		WithArgs("subject-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_published"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), sampleMark())
	require.ErrorIs(t, err, ErrResultPublished)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryUpsertAllowsMissingResultRow(t *testing.T) {
	db, mock, cleanup := newMarkMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT r.is_published FROM results r`).
		WithArgs("subject-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_published"}))
	mock.ExpectExec(`INSERT INTO marks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Upsert(context.Background(), sampleMark())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRepositoryBulkUpsertRollsBackOnPublishedResult(t *testing.T) {
	db, mock, cleanup := newMarkMock(t)
	defer cleanup()
	repo := NewMarkRepository(db)

	score := 60.0
	marks := []models.Mark{
		{ExamSubjectID: "subject-1", StudentID: "student-1", MarksObtained: &score, CreatedAt: time.Now()},
		{ExamSubjectID: "subject-1", StudentID: "student-2", MarksObtained: &score, CreatedAt: time.Now()},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT r.is_published FROM results r`).
		WithArgs("subject-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_published"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO marks`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT r.is_published FROM results r`).
		WithArgs("subject-1", "student-2").
		WillReturnRows(sqlmock.NewRows([]string{"is_published"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), marks)
	require.ErrorIs(t, err, ErrResultPublished)
	assert.NoError(t, mock.ExpectationsWereMet())
}
