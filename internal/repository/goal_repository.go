package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
)

// GoalRepository manages group goals, per-student progress rows, and the raw
// metric aggregation progress is derived from.
type GoalRepository struct {
	db *sqlx.DB
}

// NewGoalRepository constructs a GoalRepository.
func NewGoalRepository(db *sqlx.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

// CreateGoal inserts a new group goal.
func (r *GoalRepository) CreateGoal(ctx context.Context, goal *models.GroupGoal) error {
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	goal.UpdatedAt = now

	const query = `INSERT INTO group_goals (id, group_id, teacher_id, title, unit, target_value, start_date, end_date, created_at, updated_at)
		VALUES (:id, :group_id, :teacher_id, :title, :unit, :target_value, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, goal); err != nil {
		return fmt.Errorf("create group goal: %w", err)
	}
	return nil
}

// FindGoalByID fetches a goal by ID.
func (r *GoalRepository) FindGoalByID(ctx context.Context, id string) (*models.GroupGoal, error) {
	const query = `SELECT id, group_id, teacher_id, title, unit, target_value, start_date, end_date, created_at, updated_at
		FROM group_goals WHERE id = $1`
	var goal models.GroupGoal
	if err := r.db.GetContext(ctx, &goal, query, id); err != nil {
		return nil, err
	}
	return &goal, nil
}

// ListGoalsByGroup returns all goals for a group.
func (r *GoalRepository) ListGoalsByGroup(ctx context.Context, groupID string) ([]models.GroupGoal, error) {
	const query = `SELECT id, group_id, teacher_id, title, unit, target_value, start_date, end_date, created_at, updated_at
		FROM group_goals WHERE group_id = $1 ORDER BY created_at DESC`
	var goals []models.GroupGoal
	if err := r.db.SelectContext(ctx, &goals, query, groupID); err != nil {
		return nil, fmt.Errorf("list group goals: %w", err)
	}
	return goals, nil
}

// UpsertProgress writes the recomputed value for a (goal, student) pair.
// The unique key makes concurrent recomputations last-write-wins instead of
// producing duplicate rows.
func (r *GoalRepository) UpsertProgress(ctx context.Context, progress *models.StudentGoalProgress) error {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	progress.LastUpdated = time.Now().UTC()

	const query = `INSERT INTO student_goal_progress (id, group_goal_id, student_id, current_value, narrative, last_updated)
		VALUES (:id, :group_goal_id, :student_id, :current_value, :narrative, :last_updated)
		ON CONFLICT (group_goal_id, student_id)
		DO UPDATE SET current_value = EXCLUDED.current_value, narrative = COALESCE(EXCLUDED.narrative, student_goal_progress.narrative), last_updated = EXCLUDED.last_updated`
	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return fmt.Errorf("upsert goal progress: %w", err)
	}
	return nil
}

// ListProgressByGoal returns all progress rows recorded against a goal.
func (r *GoalRepository) ListProgressByGoal(ctx context.Context, goalID string) ([]models.StudentGoalProgress, error) {
	const query = `SELECT id, group_goal_id, student_id, current_value, narrative, last_updated
		FROM student_goal_progress WHERE group_goal_id = $1 ORDER BY student_id`
	var rows []models.StudentGoalProgress
	if err := r.db.SelectContext(ctx, &rows, query, goalID); err != nil {
		return nil, fmt.Errorf("list goal progress: %w", err)
	}
	return rows, nil
}

// Metrics aggregates the four raw signals for a student. Each aggregate
// tolerates an empty source table and yields zero.
func (r *GoalRepository) Metrics(ctx context.Context, studentID string) (*models.StudentMetrics, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM lessons WHERE student_id = $1 AND status = 'completed') AS attended_lessons,
		(SELECT COALESCE(AVG(CASE WHEN completed THEN 100.0 ELSE 0.0 END), 0) FROM homework_assignments WHERE student_id = $1) AS homework_completion_rate,
		(SELECT COALESCE(AVG(score), 0) FROM speaking_reviews WHERE student_id = $1) AS review_score_avg,
		(SELECT COALESCE(AVG(confidence), 0) FROM conversation_sessions WHERE student_id = $1) AS conversation_confidence`
	var metrics models.StudentMetrics
	if err := r.db.GetContext(ctx, &metrics, query, studentID); err != nil {
		return nil, fmt.Errorf("aggregate student metrics: %w", err)
	}
	return &metrics, nil
}
