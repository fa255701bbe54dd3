package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
)

type goalRepoStub struct {
	goal       *models.GroupGoal
	metrics    *models.StudentMetrics
	metricsErr error

	created  *models.GroupGoal
	upserted *models.StudentGoalProgress
	rows     []models.StudentGoalProgress
}

func (s *goalRepoStub) CreateGoal(_ context.Context, goal *models.GroupGoal) error {
	goal.ID = "g1"
	s.created = goal
	return nil
}

func (s *goalRepoStub) FindGoalByID(_ context.Context, id string) (*models.GroupGoal, error) {
	if s.goal == nil || s.goal.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.goal, nil
}

func (s *goalRepoStub) ListGoalsByGroup(_ context.Context, _ string) ([]models.GroupGoal, error) {
	if s.goal == nil {
		return nil, nil
	}
	return []models.GroupGoal{*s.goal}, nil
}

func (s *goalRepoStub) UpsertProgress(_ context.Context, progress *models.StudentGoalProgress) error {
	s.upserted = progress
	return nil
}

func (s *goalRepoStub) ListProgressByGoal(_ context.Context, _ string) ([]models.StudentGoalProgress, error) {
	return s.rows, nil
}

func (s *goalRepoStub) Metrics(_ context.Context, _ string) (*models.StudentMetrics, error) {
	if s.metricsErr != nil {
		return nil, s.metricsErr
	}
	return s.metrics, nil
}

type cacheStub struct {
	invalidated []string
	setKeys     []string
}

func (s *cacheStub) Get(_ context.Context, _ string, _ interface{}) error {
	return appErrors.ErrCacheMiss
}

func (s *cacheStub) Set(_ context.Context, key string, _ interface{}, _ time.Duration) {
	s.setKeys = append(s.setKeys, key)
}

func (s *cacheStub) Invalidate(_ context.Context, key string) {
	s.invalidated = append(s.invalidated, key)
}

func testGoal(unit models.GoalUnit, target int) *models.GroupGoal {
	return &models.GroupGoal{
		ID:          "g1",
		GroupID:     "group-1",
		TeacherID:   "teacher-1",
		Title:       "Spring sprint",
		Unit:        unit,
		TargetValue: target,
		StartDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
	}
}

func recompute(t *testing.T, goal *models.GroupGoal, metrics *models.StudentMetrics, clamp bool) (*models.GoalProgressResult, *goalRepoStub) {
	t.Helper()
	repo := &goalRepoStub{goal: goal, metrics: metrics}
	svc := NewGoalService(repo, nil, time.Minute, clamp, nil, nil, nil)
	result, err := svc.Recompute(context.Background(), "student-1", goal.ID)
	require.NoError(t, err)
	return result, repo
}

func TestRecomputeLessonsUnitCountsAttendance(t *testing.T) {
	result, repo := recompute(t, testGoal(models.UnitLessons, 10), &models.StudentMetrics{AttendedLessons: 7}, false)
	assert.Equal(t, 7, result.CurrentValue)
	require.NotNil(t, repo.upserted)
	assert.Equal(t, 7, repo.upserted.CurrentValue)
	assert.Equal(t, "g1", repo.upserted.GroupGoalID)
	assert.Equal(t, "student-1", repo.upserted.StudentID)
	require.NotNil(t, repo.upserted.Narrative)
}

func TestRecomputeHomeworkUnitScalesCompletionRate(t *testing.T) {
	metrics := &models.StudentMetrics{HomeworkCompletionRate: 50}
	result, _ := recompute(t, testGoal(models.UnitHomework, 10), metrics, false)
	assert.Equal(t, 5, result.CurrentValue)
}

func TestRecomputeAssignmentsUnitUsesHomeworkFormula(t *testing.T) {
	metrics := &models.StudentMetrics{HomeworkCompletionRate: 75}
	result, _ := recompute(t, testGoal(models.UnitAssignments, 20), metrics, false)
	assert.Equal(t, 15, result.CurrentValue)
}

func TestRecomputeHoursUnitConvertsLessons(t *testing.T) {
	result, _ := recompute(t, testGoal(models.UnitHours, 12), &models.StudentMetrics{AttendedLessons: 4}, false)
	assert.Equal(t, 6, result.CurrentValue)
}

func TestRecomputePointsUnitBlendsPerformanceSignals(t *testing.T) {
	metrics := &models.StudentMetrics{ReviewScoreAvg: 80, ConversationConfidence: 60}
	result, _ := recompute(t, testGoal(models.UnitPoints, 100), metrics, false)
	assert.Equal(t, 70, result.CurrentValue)
}

func TestRecomputePointsIgnoresMissingSignals(t *testing.T) {
	metrics := &models.StudentMetrics{ReviewScoreAvg: 80}
	result, _ := recompute(t, testGoal(models.UnitPoints, 100), metrics, false)
	assert.Equal(t, 80, result.CurrentValue, "zero-valued signals are excluded from the blend")

	result, _ = recompute(t, testGoal(models.UnitPoints, 100), &models.StudentMetrics{}, false)
	assert.Equal(t, 0, result.CurrentValue)
}

func TestRecomputeUnknownUnitFallsBackToPoints(t *testing.T) {
	metrics := &models.StudentMetrics{ReviewScoreAvg: 40, ConversationConfidence: 60}
	result, _ := recompute(t, testGoal(models.UnitOther, 100), metrics, false)
	assert.Equal(t, 50, result.CurrentValue)
}

func TestRecomputeClampToTarget(t *testing.T) {
	metrics := &models.StudentMetrics{AttendedLessons: 12}

	result, _ := recompute(t, testGoal(models.UnitLessons, 10), metrics, false)
	assert.Equal(t, 12, result.CurrentValue, "overshoot is reported as-is by default")

	result, _ = recompute(t, testGoal(models.UnitLessons, 10), metrics, true)
	assert.Equal(t, 10, result.CurrentValue, "clamping caps at the target")
}

func TestRecomputeIsIdempotent(t *testing.T) {
	repo := &goalRepoStub{goal: testGoal(models.UnitLessons, 10), metrics: &models.StudentMetrics{AttendedLessons: 7}}
	svc := NewGoalService(repo, nil, time.Minute, false, nil, nil, nil)

	first, err := svc.Recompute(context.Background(), "student-1", "g1")
	require.NoError(t, err)
	second, err := svc.Recompute(context.Background(), "student-1", "g1")
	require.NoError(t, err)
	assert.Equal(t, first.CurrentValue, second.CurrentValue)
}

func TestRecomputeInvalidatesProgressCache(t *testing.T) {
	repo := &goalRepoStub{goal: testGoal(models.UnitLessons, 10), metrics: &models.StudentMetrics{AttendedLessons: 3}}
	cache := &cacheStub{}
	svc := NewGoalService(repo, cache, time.Minute, false, nil, nil, nil)

	_, err := svc.Recompute(context.Background(), "student-1", "g1")
	require.NoError(t, err)
	assert.Contains(t, cache.invalidated, "goal_progress:g1")
}

func TestRecomputeGoalNotFound(t *testing.T) {
	svc := NewGoalService(&goalRepoStub{}, nil, time.Minute, false, nil, nil, nil)

	_, err := svc.Recompute(context.Background(), "student-1", "missing")
	assertErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestGoalProgressCachesListing(t *testing.T) {
	repo := &goalRepoStub{
		goal: testGoal(models.UnitLessons, 10),
		rows: []models.StudentGoalProgress{{GroupGoalID: "g1", StudentID: "student-1", CurrentValue: 4}},
	}
	cache := &cacheStub{}
	svc := NewGoalService(repo, cache, time.Minute, false, nil, nil, nil)

	rows, err := svc.GoalProgress(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, cache.setKeys, "goal_progress:g1")
}

func TestCreateGoalValidatesDates(t *testing.T) {
	svc := NewGoalService(&goalRepoStub{}, nil, time.Minute, false, nil, nil, nil)

	_, err := svc.CreateGoal(context.Background(), "teacher-1", CreateGoalRequest{
		GroupID:     "group-1",
		Title:       "Backwards",
		Unit:        "lessons",
		TargetValue: 5,
		StartDate:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestCreateGoalAssignsOwner(t *testing.T) {
	repo := &goalRepoStub{}
	svc := NewGoalService(repo, nil, time.Minute, false, nil, nil, nil)

	goal, err := svc.CreateGoal(context.Background(), "teacher-9", CreateGoalRequest{
		GroupID:     "group-1",
		Title:       "Spring sprint",
		Unit:        "points",
		TargetValue: 100,
		StartDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher-9", goal.TeacherID)
	assert.Equal(t, models.UnitPoints, goal.Unit)
	require.NotNil(t, repo.created)
}
