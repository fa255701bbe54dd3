package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/repository"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
)

type candidateSource interface {
	Candidates(ctx context.Context, level string, dayOfWeek int, timeOfDay string) ([]string, error)
	Profiles(ctx context.Context, teacherIDs []string) ([]models.CandidateProfile, error)
}

type requestReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentAvailabilityRequest, error)
}

type matchCommitter interface {
	CreateMatched(ctx context.Context, lesson *models.Lesson, video *models.VideoLesson, requestID string) error
	UpcomingCounts(ctx context.Context, teacherIDs []string, asOf time.Time) (map[string]int, error)
}

// InstantMatchRequest asks for a lesson right now.
type InstantMatchRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Level     string `json:"level" validate:"required,oneof=beginner intermediate advanced"`
}

// InstantMatchResult reports instant-match outcome; Available is false when
// no teacher covers the current wall-clock slot, with nothing written.
type InstantMatchResult struct {
	Available bool                `json:"available"`
	Match     *models.MatchResult `json:"match,omitempty"`
}

// MatchingService orchestrates the availability index, the candidate scorer,
// and the atomic lesson commit.
type MatchingService struct {
	availability candidateSource
	requests     requestReader
	lessons      matchCommitter
	scorer       CandidateScorer
	meetingBase  string
	defaultDur   time.Duration
	now          func() time.Time
	validator    *validator.Validate
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewMatchingService creates a service instance.
func NewMatchingService(
	availability candidateSource,
	requests requestReader,
	lessons matchCommitter,
	scorer CandidateScorer,
	meetingBase string,
	defaultDuration time.Duration,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *MatchingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultDuration <= 0 {
		defaultDuration = 30 * time.Minute
	}
	return &MatchingService{
		availability: availability,
		requests:     requests,
		lessons:      lessons,
		scorer:       scorer,
		meetingBase:  meetingBase,
		defaultDur:   defaultDuration,
		now:          time.Now,
		validator:    validate,
		metrics:      metrics,
		logger:       logger,
	}
}

// MatchScheduled matches a pending student availability request. The lesson
// insert and the pending->matched flip happen in one transaction; on any
// failure the request stays pending so the caller may retry safely.
func (s *MatchingService) MatchScheduled(ctx context.Context, requestID string) (*models.MatchResult, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability request")
	}
	if req.Status != models.RequestPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "availability request already "+string(req.Status))
	}

	scheduledAt, err := combineDateTime(req.PreferredDate, req.PreferredTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferred time")
	}

	result, err := s.match(ctx, matchParams{
		studentID:   req.StudentID,
		level:       req.PreferredLevel,
		scheduledAt: scheduledAt,
		duration:    time.Duration(req.DurationMinutes) * time.Minute,
		requestID:   req.ID,
		flow:        "scheduled",
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MatchInstant matches a student against the current wall-clock time. There
// is no underlying request row; an empty candidate set is a normal outcome,
// not an error, and writes nothing.
func (s *MatchingService) MatchInstant(ctx context.Context, req InstantMatchRequest) (*InstantMatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instant match payload")
	}

	result, err := s.match(ctx, matchParams{
		studentID:   req.StudentID,
		level:       req.Level,
		scheduledAt: s.now().UTC(),
		duration:    s.defaultDur,
		flow:        "instant",
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrNoCandidates.Code {
			return &InstantMatchResult{Available: false}, nil
		}
		return nil, err
	}
	return &InstantMatchResult{Available: true, Match: result}, nil
}

type matchParams struct {
	studentID   string
	level       string
	scheduledAt time.Time
	duration    time.Duration
	requestID   string
	flow        string
}

func (s *MatchingService) match(ctx context.Context, p matchParams) (*models.MatchResult, error) {
	dayOfWeek := int(p.scheduledAt.Weekday())
	timeOfDay := p.scheduledAt.Format("15:04")

	candidates, err := s.availability.Candidates(ctx, p.level, dayOfWeek, timeOfDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query candidates")
	}
	if len(candidates) == 0 {
		s.observe(p.flow, "no_candidates")
		return nil, appErrors.Clone(appErrors.ErrNoCandidates, "")
	}

	sel, err := s.buildSelectionContext(ctx, candidates, p)
	if err != nil {
		return nil, err
	}

	teacherID, err := s.scorer.Select(ctx, candidates, sel)
	if err != nil {
		// The deterministic scorer only fails on an empty set, which was
		// ruled out above; anything else is unexpected.
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "candidate selection failed")
	}

	durationMin := int(p.duration / time.Minute)
	if durationMin <= 0 {
		durationMin = int(s.defaultDur / time.Minute)
	}

	lesson := &models.Lesson{
		StudentID:     p.studentID,
		TeacherID:     &teacherID,
		ScheduledAt:   p.scheduledAt,
		DurationMin:   durationMin,
		Level:         p.level,
		Status:        models.LessonScheduled,
		IsVideoLesson: true,
	}
	video := &models.VideoLesson{
		MeetingLink: fmt.Sprintf("%s/%s", s.meetingBase, uuid.NewString()),
		Status:      models.LessonScheduled,
	}

	if err := s.lessons.CreateMatched(ctx, lesson, video, p.requestID); err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			s.observe(p.flow, "conflict")
			return nil, appErrors.Clone(appErrors.ErrConflict, "availability request was matched concurrently")
		}
		s.observe(p.flow, "persistence_failure")
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}

	s.observe(p.flow, "matched")
	s.logger.Info("lesson matched",
		zap.String("flow", p.flow),
		zap.String("student_id", p.studentID),
		zap.String("teacher_id", teacherID),
		zap.String("lesson_id", lesson.ID),
		zap.Time("scheduled_at", p.scheduledAt),
	)

	result := &models.MatchResult{LessonID: lesson.ID, TeacherID: teacherID}
	if video != nil {
		result.VideoLessonID = &video.ID
	}
	return result, nil
}

func (s *MatchingService) buildSelectionContext(ctx context.Context, candidates []string, p matchParams) (SelectionContext, error) {
	profiles, err := s.availability.Profiles(ctx, candidates)
	if err != nil {
		return SelectionContext{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate profiles")
	}

	loads, err := s.lessons.UpcomingCounts(ctx, candidates, s.now().UTC())
	if err != nil {
		return SelectionContext{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher load")
	}
	for i := range profiles {
		profiles[i].UpcomingCount = loads[profiles[i].TeacherID]
	}

	return SelectionContext{
		StudentID: p.studentID,
		Level:     p.level,
		At:        p.scheduledAt,
		Profiles:  profiles,
	}, nil
}

func (s *MatchingService) observe(flow, outcome string) {
	if s.metrics != nil {
		s.metrics.IncMatch(flow, outcome)
	}
}

// combineDateTime merges a preferred date with an HH:MM clock string.
func combineDateTime(date time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse preferred time %q: %w", clock, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC), nil
}
