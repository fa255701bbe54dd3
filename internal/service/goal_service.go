package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
)

type goalRepository interface {
	CreateGoal(ctx context.Context, goal *models.GroupGoal) error
	FindGoalByID(ctx context.Context, id string) (*models.GroupGoal, error)
	ListGoalsByGroup(ctx context.Context, groupID string) ([]models.GroupGoal, error)
	UpsertProgress(ctx context.Context, progress *models.StudentGoalProgress) error
	ListProgressByGoal(ctx context.Context, goalID string) ([]models.StudentGoalProgress, error)
	Metrics(ctx context.Context, studentID string) (*models.StudentMetrics, error)
}

type progressCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
}

// CreateGoalRequest describes a new group goal.
type CreateGoalRequest struct {
	GroupID     string    `json:"group_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Unit        string    `json:"unit" validate:"required,oneof=lessons assignments homework points hours other"`
	TargetValue int       `json:"target_value" validate:"required,gt=0"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
}

// GoalService owns group goals and derives per-student progress from raw
// performance signals.
type GoalService struct {
	goals         goalRepository
	cache         progressCache
	cacheTTL      time.Duration
	clampToTarget bool
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewGoalService creates a service instance.
func NewGoalService(goals goalRepository, cache progressCache, cacheTTL time.Duration, clampToTarget bool, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GoalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalService{
		goals:         goals,
		cache:         cache,
		cacheTTL:      cacheTTL,
		clampToTarget: clampToTarget,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
	}
}

// CreateGoal registers a new goal owned by the teacher.
func (s *GoalService) CreateGoal(ctx context.Context, teacherID string, req CreateGoalRequest) (*models.GroupGoal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid goal payload")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}

	goal := &models.GroupGoal{
		GroupID:     req.GroupID,
		TeacherID:   teacherID,
		Title:       req.Title,
		Unit:        models.GoalUnit(req.Unit),
		TargetValue: req.TargetValue,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := s.goals.CreateGoal(ctx, goal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create goal")
	}
	return goal, nil
}

// ListGroupGoals returns all goals for a group.
func (s *GoalService) ListGroupGoals(ctx context.Context, groupID string) ([]models.GroupGoal, error) {
	goals, err := s.goals.ListGoalsByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list goals")
	}
	return goals, nil
}

// GoalProgress lists recorded progress for a goal, cache-aside.
func (s *GoalService) GoalProgress(ctx context.Context, goalID string) ([]models.StudentGoalProgress, error) {
	key := progressCacheKey(goalID)
	if s.cache != nil {
		var cached []models.StudentGoalProgress
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	if _, err := s.findGoal(ctx, goalID); err != nil {
		return nil, err
	}
	rows, err := s.goals.ListProgressByGoal(ctx, goalID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list progress")
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, rows, s.cacheTTL)
	}
	return rows, nil
}

// Recompute derives a student's current value toward a goal from the four
// raw metrics and upserts the progress row. Concurrent recomputations for
// the same pair are last-write-wins, never duplicated.
func (s *GoalService) Recompute(ctx context.Context, studentID, goalID string) (*models.GoalProgressResult, error) {
	goal, err := s.findGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}

	metrics, err := s.goals.Metrics(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student metrics")
	}

	value := computeGoalValue(goal.Unit, goal.TargetValue, metrics)
	if s.clampToTarget && value > goal.TargetValue {
		value = goal.TargetValue
	}

	narrative := buildNarrative(goal, value, metrics)
	progress := &models.StudentGoalProgress{
		GroupGoalID:  goalID,
		StudentID:    studentID,
		CurrentValue: value,
		Narrative:    &narrative,
	}
	if err := s.goals.UpsertProgress(ctx, progress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, progressCacheKey(goalID))
	}
	if s.metrics != nil {
		s.metrics.IncGoalRecompute()
	}
	s.logger.Info("goal progress recomputed",
		zap.String("goal_id", goalID),
		zap.String("student_id", studentID),
		zap.Int("current_value", value),
	)

	return &models.GoalProgressResult{
		GroupGoalID:  goalID,
		StudentID:    studentID,
		CurrentValue: value,
		TargetValue:  goal.TargetValue,
		Unit:         goal.Unit,
	}, nil
}

func (s *GoalService) findGoal(ctx context.Context, goalID string) (*models.GroupGoal, error) {
	goal, err := s.goals.FindGoalByID(ctx, goalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group goal not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load goal")
	}
	return goal, nil
}

// computeGoalValue maps the goal unit onto its formula. Unrecognized units
// fall through to the points formula.
func computeGoalValue(unit models.GoalUnit, target int, m *models.StudentMetrics) int {
	switch unit {
	case models.UnitLessons:
		return m.AttendedLessons
	case models.UnitAssignments, models.UnitHomework:
		return int(math.Round(m.HomeworkCompletionRate * float64(target) / 100))
	case models.UnitHours:
		return int(math.Round(float64(m.AttendedLessons) * 1.5))
	default:
		return int(math.Round(performanceScore(m) * float64(target) / 100))
	}
}

// performanceScore blends the AI review average with conversation confidence,
// ignoring signals the student has no data for.
func performanceScore(m *models.StudentMetrics) float64 {
	var sum float64
	var n int
	if m.ReviewScoreAvg > 0 {
		sum += m.ReviewScoreAvg
		n++
	}
	if m.ConversationConfidence > 0 {
		sum += m.ConversationConfidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func buildNarrative(goal *models.GroupGoal, value int, m *models.StudentMetrics) string {
	return fmt.Sprintf("%d of %d %s toward %q (%d lessons attended, %.0f%% homework completion)",
		value, goal.TargetValue, goal.Unit, goal.Title, m.AttendedLessons, m.HomeworkCompletionRate)
}

func progressCacheKey(goalID string) string {
	return "goal_progress:" + goalID
}
