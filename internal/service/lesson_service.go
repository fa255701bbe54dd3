package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
)

type lessonRepository interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	FindVideoByLessonID(ctx context.Context, lessonID string) (*models.VideoLesson, error)
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error)
	Transition(ctx context.Context, lessonID string, from, to models.LessonStatus) error
	UpdateVideoLink(ctx context.Context, lessonID, link string) error
	SetAIInsights(ctx context.Context, lessonID, insights string) error
}

// CompleteLessonRequest optionally carries the external AI post-lesson
// summary that drove the completion.
type CompleteLessonRequest struct {
	AISummary string `json:"ai_summary"`
}

// UpdateVideoLinkRequest replaces a video lesson's meeting link.
type UpdateVideoLinkRequest struct {
	MeetingLink string `json:"meeting_link" validate:"required,url"`
}

// LessonDetail bundles a lesson with its video companion.
type LessonDetail struct {
	Lesson models.Lesson       `json:"lesson"`
	Video  *models.VideoLesson `json:"video,omitempty"`
}

// LessonService enforces the lesson lifecycle.
type LessonService struct {
	lessons   lessonRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLessonService creates a service instance.
func NewLessonService(lessons lessonRepository, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{lessons: lessons, validator: validate, logger: logger}
}

// Get returns a lesson with its video companion when present.
func (s *LessonService) Get(ctx context.Context, lessonID string) (*LessonDetail, error) {
	lesson, err := s.findLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	detail := &LessonDetail{Lesson: *lesson}
	if lesson.IsVideoLesson {
		video, err := s.lessons.FindVideoByLessonID(ctx, lessonID)
		if err != nil && err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load video lesson")
		}
		detail.Video = video
	}
	return detail, nil
}

// List returns lessons for the filter along with pagination metadata.
func (s *LessonService) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, *models.Pagination, error) {
	lessons, total, err := s.lessons.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return lessons, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Start moves a scheduled lesson into progress.
func (s *LessonService) Start(ctx context.Context, lessonID string) error {
	return s.transition(ctx, lessonID, models.LessonInProgress)
}

// Complete finishes a lesson. Completion may arrive from any non-terminal
// state because lesson end is observed externally (the AI summary step), and
// the summary, when present, lands on the video companion.
func (s *LessonService) Complete(ctx context.Context, lessonID string, req CompleteLessonRequest) error {
	if err := s.transition(ctx, lessonID, models.LessonCompleted); err != nil {
		return err
	}
	if summary := strings.TrimSpace(req.AISummary); summary != "" {
		if err := s.lessons.SetAIInsights(ctx, lessonID, summary); err != nil {
			// The lesson is already completed; losing the summary is
			// logged rather than unwinding the transition.
			s.logger.Error("failed to store ai summary", zap.String("lesson_id", lessonID), zap.Error(err))
		}
	}
	return nil
}

// Cancel cancels a lesson that has not finished.
func (s *LessonService) Cancel(ctx context.Context, lessonID string) error {
	return s.transition(ctx, lessonID, models.LessonCancelled)
}

// UpdateVideoLink lets the owning teacher replace the meeting link.
func (s *LessonService) UpdateVideoLink(ctx context.Context, lessonID string, req UpdateVideoLinkRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid meeting link payload")
	}
	lesson, err := s.findLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if !lesson.IsVideoLesson {
		return appErrors.Clone(appErrors.ErrValidation, "lesson has no video session")
	}
	if err := s.lessons.UpdateVideoLink(ctx, lessonID, req.MeetingLink); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "video lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update meeting link")
	}
	return nil
}

func (s *LessonService) transition(ctx context.Context, lessonID string, to models.LessonStatus) error {
	lesson, err := s.findLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if !lesson.Status.CanTransitionTo(to) {
		return appErrors.Clone(appErrors.ErrInvalidTransition,
			"cannot move lesson from "+string(lesson.Status)+" to "+string(to))
	}
	if err := s.lessons.Transition(ctx, lessonID, lesson.Status, to); err != nil {
		if err == sql.ErrNoRows {
			// Lost a race with a concurrent transition.
			return appErrors.Clone(appErrors.ErrInvalidTransition, "lesson state changed concurrently")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, appErrors.ErrPersistence.Message)
	}
	s.logger.Info("lesson transitioned", zap.String("lesson_id", lessonID), zap.String("to", string(to)))
	return nil
}

func (s *LessonService) findLesson(ctx context.Context, lessonID string) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	return lesson, nil
}
