package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
)

func newLessonRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func matchedLessonFixture() (*models.Lesson, *models.VideoLesson) {
	teacher := "t1"
	lesson := &models.Lesson{
		StudentID:     "s1",
		TeacherID:     &teacher,
		ScheduledAt:   time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		DurationMin:   60,
		Level:         models.LevelBeginner,
		Status:        models.LessonScheduled,
		IsVideoLesson: true,
	}
	video := &models.VideoLesson{MeetingLink: "https://meet.example.com/rooms/abc", Status: models.LessonScheduled}
	return lesson, video
}

func TestLessonRepositoryCreateMatched(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE student_availability_requests SET status").
		WithArgs(string(models.RequestMatched), sqlmock.AnyArg(), "req-1", string(models.RequestPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO lessons").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO video_lessons").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	lesson, video := matchedLessonFixture()
	require.NoError(t, repo.CreateMatched(context.Background(), lesson, video, "req-1"))
	assert.NotEmpty(t, lesson.ID)
	assert.Equal(t, lesson.ID, video.LessonID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCreateMatchedRollsBackWhenNotPending(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE student_availability_requests SET status").
		WithArgs(string(models.RequestMatched), sqlmock.AnyArg(), "req-1", string(models.RequestPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	lesson, video := matchedLessonFixture()
	err := repo.CreateMatched(context.Background(), lesson, video, "req-1")
	assert.ErrorIs(t, err, ErrRequestNotPending)
	assert.NoError(t, mock.ExpectationsWereMet(), "no lesson may be inserted after the guard fails")
}

func TestLessonRepositoryCreateMatchedInstantSkipsRequestFlip(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lessons").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO video_lessons").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	lesson, video := matchedLessonFixture()
	require.NoError(t, repo.CreateMatched(context.Background(), lesson, video, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCreateMatchedRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE student_availability_requests SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO lessons").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	lesson, video := matchedLessonFixture()
	err := repo.CreateMatched(context.Background(), lesson, video, "req-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryTransition(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE lessons SET status").
		WithArgs(string(models.LessonInProgress), sqlmock.AnyArg(), "l1", string(models.LessonScheduled)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE video_lessons SET status").
		WithArgs(string(models.LessonInProgress), sqlmock.AnyArg(), "l1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Transition(context.Background(), "l1", models.LessonScheduled, models.LessonInProgress)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryTransitionLosesRace(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE lessons SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), "l1", models.LessonScheduled, models.LessonCompleted)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryUpdateVideoLinkMissing(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("UPDATE video_lessons SET meeting_link").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateVideoLink(context.Background(), "l1", "https://meet.example.com/rooms/new")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryUpcomingCounts(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := sqlmock.NewRows([]string{"teacher_id", "upcoming_count"}).
		AddRow("t1", 3).
		AddRow("t2", 1)
	mock.ExpectQuery("SELECT teacher_id, COUNT").
		WillReturnRows(rows)

	counts, err := repo.UpcomingCounts(context.Background(), []string{"t1", "t2", "t3"}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"t1": 3, "t2": 1}, counts)
	assert.Zero(t, counts["t3"], "teachers with no rows count as zero load")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryUpcomingCountsEmptyInput(t *testing.T) {
	db, _, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	counts, err := repo.UpcomingCounts(context.Background(), nil, time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, counts)
}
