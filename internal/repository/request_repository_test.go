package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryCreateDefaultsToPending(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectExec("INSERT INTO student_availability_requests").
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.StudentAvailabilityRequest{
		StudentID:       "s1",
		PreferredDate:   time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		PreferredTime:   "10:00",
		PreferredLevel:  models.LevelBeginner,
		DurationMinutes: 60,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryExpireStale(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	cutoff := time.Now().UTC().Add(-48 * time.Hour)
	mock.ExpectExec("UPDATE student_availability_requests SET status").
		WithArgs(string(models.RequestExpired), sqlmock.AnyArg(), string(models.RequestPending), cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.ExpireStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
