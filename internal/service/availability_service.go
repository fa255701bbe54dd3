package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
)

type slotRepository interface {
	Create(ctx context.Context, slot *models.TeacherAvailabilitySlot) error
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailabilitySlot, error)
	Delete(ctx context.Context, teacherID, slotID string) (bool, error)
}

type requestWriter interface {
	Create(ctx context.Context, req *models.StudentAvailabilityRequest) error
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentAvailabilityRequest, error)
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// CreateSlotRequest describes a new availability window.
type CreateSlotRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Level     string `json:"level" validate:"required,oneof=beginner intermediate advanced"`
}

// CreateAvailabilityRequest describes a student's ask for a future lesson.
type CreateAvailabilityRequest struct {
	StudentID       string    `json:"student_id" validate:"required"`
	PreferredDate   time.Time `json:"preferred_date" validate:"required"`
	PreferredTime   string    `json:"preferred_time" validate:"required"`
	PreferredLevel  string    `json:"preferred_level" validate:"required,oneof=beginner intermediate advanced"`
	DurationMinutes int       `json:"duration_minutes" validate:"min=0,max=180"`
}

// AvailabilityService manages teacher slots and student availability requests.
type AvailabilityService struct {
	slots      slotRepository
	requests   requestWriter
	pendingTTL time.Duration
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAvailabilityService creates a service instance.
func NewAvailabilityService(slots slotRepository, requests requestWriter, pendingTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		slots:      slots,
		requests:   requests,
		pendingTTL: pendingTTL,
		validator:  validate,
		logger:     logger,
	}
}

// CreateSlot declares a new availability window for a teacher.
func (s *AvailabilityService) CreateSlot(ctx context.Context, teacherID string, req CreateSlotRequest) (*models.TeacherAvailabilitySlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}

	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	slot := &models.TeacherAvailabilitySlot{
		TeacherID: teacherID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Level:     req.Level,
		Available: true,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
	}
	return slot, nil
}

// ListSlots returns a teacher's declared availability.
func (s *AvailabilityService) ListSlots(ctx context.Context, teacherID string) ([]models.TeacherAvailabilitySlot, error) {
	slots, err := s.slots.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	return slots, nil
}

// DeleteSlot removes a slot owned by the teacher.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, teacherID, slotID string) error {
	deleted, err := s.slots.Delete(ctx, teacherID, slotID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "availability slot not found")
	}
	return nil
}

// CreateRequest files a new pending availability request for a student.
func (s *AvailabilityService) CreateRequest(ctx context.Context, req CreateAvailabilityRequest) (*models.StudentAvailabilityRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if _, err := time.Parse("15:04", req.PreferredTime); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "preferred_time must be HH:MM")
	}

	record := &models.StudentAvailabilityRequest{
		StudentID:       req.StudentID,
		PreferredDate:   req.PreferredDate,
		PreferredTime:   req.PreferredTime,
		PreferredLevel:  req.PreferredLevel,
		DurationMinutes: req.DurationMinutes,
		Status:          models.RequestPending,
	}
	if err := s.requests.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability request")
	}
	return record, nil
}

// ListRequests returns a student's availability requests.
func (s *AvailabilityService) ListRequests(ctx context.Context, studentID string) ([]models.StudentAvailabilityRequest, error) {
	requests, err := s.requests.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability requests")
	}
	return requests, nil
}

// ExpirePending marks requests pending longer than the configured TTL as
// expired and returns the number affected.
func (s *AvailabilityService) ExpirePending(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.pendingTTL)
	expired, err := s.requests.ExpireStale(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire requests")
	}
	if expired > 0 {
		s.logger.Info("expired stale availability requests", zap.Int64("count", expired))
	}
	return expired, nil
}
