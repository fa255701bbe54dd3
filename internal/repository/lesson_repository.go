package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
)

// ErrRequestNotPending is returned when the matched-request flip touches a
// request that is no longer pending. The surrounding transaction is rolled
// back so no lesson is created for it.
var ErrRequestNotPending = errors.New("availability request is not pending")

const lessonColumns = `id, student_id, teacher_id, scheduled_at, duration_minutes, level, status, is_video_lesson, created_at, updated_at`

const videoLessonColumns = `id, lesson_id, meeting_link, ai_insights, status, created_at, updated_at`

// LessonRepository manages lessons, their video companions, and the atomic
// match commit.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// CreateMatched inserts the lesson and, when set, its video companion, and
// flips the originating request from pending to matched, all in one
// transaction. An empty requestID skips the flip (instant matches have no
// underlying request). Nothing is written if any step fails.
func (r *LessonRepository) CreateMatched(ctx context.Context, lesson *models.Lesson, video *models.VideoLesson, requestID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin match commit: %w", err)
	}

	now := time.Now().UTC()
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now
	if lesson.Status == "" {
		lesson.Status = models.LessonScheduled
	}

	if requestID != "" {
		res, err := tx.ExecContext(ctx,
			`UPDATE student_availability_requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
			models.RequestMatched, now, requestID, models.RequestPending)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("mark request matched: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("mark request matched: %w", err)
		}
		if affected == 0 {
			tx.Rollback() //nolint:errcheck
			return ErrRequestNotPending
		}
	}

	const insertLesson = `INSERT INTO lessons (` + lessonColumns + `)
		VALUES (:id, :student_id, :teacher_id, :scheduled_at, :duration_minutes, :level, :status, :is_video_lesson, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertLesson, lesson); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("insert lesson: %w", err)
	}

	if video != nil {
		if video.ID == "" {
			video.ID = uuid.NewString()
		}
		video.LessonID = lesson.ID
		if video.Status == "" {
			video.Status = models.LessonScheduled
		}
		if video.CreatedAt.IsZero() {
			video.CreatedAt = now
		}
		video.UpdatedAt = now

		const insertVideo = `INSERT INTO video_lessons (` + videoLessonColumns + `)
			VALUES (:id, :lesson_id, :meeting_link, :ai_insights, :status, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertVideo, video); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert video lesson: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match: %w", err)
	}
	return nil
}

// FindByID fetches a lesson by ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// FindVideoByLessonID fetches the video companion of a lesson.
func (r *LessonRepository) FindVideoByLessonID(ctx context.Context, lessonID string) (*models.VideoLesson, error) {
	var video models.VideoLesson
	if err := r.db.GetContext(ctx, &video, `SELECT `+videoLessonColumns+` FROM video_lessons WHERE lesson_id = $1`, lessonID); err != nil {
		return nil, err
	}
	return &video, nil
}

// List returns lessons matching the filter, newest first, with total count.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	base := "FROM lessons WHERE 1=1"
	var args []interface{}

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		base += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		base += fmt.Sprintf(" AND teacher_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		base += fmt.Sprintf(" AND scheduled_at >= $%d", len(args))
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY scheduled_at DESC LIMIT %d OFFSET %d", lessonColumns, base, size, offset)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}
	return lessons, total, nil
}

// Transition advances a lesson (and its video companion when present) from
// one status to another. The guard on the current status makes concurrent
// transitions lose cleanly; zero affected rows maps to sql.ErrNoRows.
func (r *LessonRepository) Transition(ctx context.Context, lessonID string, from, to models.LessonStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx, `UPDATE lessons SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`, to, now, lessonID, from)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("transition lesson: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("transition lesson: %w", err)
	}
	if affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `UPDATE video_lessons SET status = $1, updated_at = $2 WHERE lesson_id = $3`, to, now, lessonID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("transition video lesson: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// UpdateVideoLink replaces the meeting link on a lesson's video companion.
func (r *LessonRepository) UpdateVideoLink(ctx context.Context, lessonID, link string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE video_lessons SET meeting_link = $1, updated_at = $2 WHERE lesson_id = $3`, link, time.Now().UTC(), lessonID)
	if err != nil {
		return fmt.Errorf("update meeting link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update meeting link: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAIInsights stores the post-lesson AI summary on the video companion.
func (r *LessonRepository) SetAIInsights(ctx context.Context, lessonID, insights string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE video_lessons SET ai_insights = $1, updated_at = $2 WHERE lesson_id = $3`, insights, time.Now().UTC(), lessonID); err != nil {
		return fmt.Errorf("set ai insights: %w", err)
	}
	return nil
}

// UpcomingCounts returns, per teacher, the number of upcoming lessons
// (scheduled or in progress, not yet past). Teachers with no rows are absent
// from the map and count as zero load.
func (r *LessonRepository) UpcomingCounts(ctx context.Context, teacherIDs []string, asOf time.Time) (map[string]int, error) {
	if len(teacherIDs) == 0 {
		return map[string]int{}, nil
	}
	query, args, err := sqlx.In(`SELECT teacher_id, COUNT(*) AS upcoming_count FROM lessons
		WHERE teacher_id IN (?) AND status IN (?, ?) AND scheduled_at >= ?
		GROUP BY teacher_id`, teacherIDs, models.LessonScheduled, models.LessonInProgress, asOf)
	if err != nil {
		return nil, fmt.Errorf("build load query: %w", err)
	}
	query = r.db.Rebind(query)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query teacher load: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(teacherIDs))
	for rows.Next() {
		var teacherID string
		var count int
		if err := rows.Scan(&teacherID, &count); err != nil {
			return nil, fmt.Errorf("scan teacher load: %w", err)
		}
		counts[teacherID] = count
	}
	return counts, rows.Err()
}
