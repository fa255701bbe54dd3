package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
)

type slotRepoStub struct {
	created []models.TeacherAvailabilitySlot
	deleted bool
}

func (s *slotRepoStub) Create(_ context.Context, slot *models.TeacherAvailabilitySlot) error {
	slot.ID = "slot-1"
	s.created = append(s.created, *slot)
	return nil
}

func (s *slotRepoStub) ListByTeacher(_ context.Context, _ string) ([]models.TeacherAvailabilitySlot, error) {
	return s.created, nil
}

func (s *slotRepoStub) Delete(_ context.Context, _, _ string) (bool, error) {
	return s.deleted, nil
}

type requestWriterStub struct {
	created *models.StudentAvailabilityRequest
	expired int64
	cutoff  time.Time
}

func (s *requestWriterStub) Create(_ context.Context, req *models.StudentAvailabilityRequest) error {
	req.ID = "req-1"
	s.created = req
	return nil
}

func (s *requestWriterStub) ListByStudent(_ context.Context, _ string) ([]models.StudentAvailabilityRequest, error) {
	return nil, nil
}

func (s *requestWriterStub) ExpireStale(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.expired, nil
}

func newAvailabilityFixture(slots *slotRepoStub, requests *requestWriterStub) *AvailabilityService {
	return NewAvailabilityService(slots, requests, 48*time.Hour, nil, nil)
}

func TestCreateSlot(t *testing.T) {
	slots := &slotRepoStub{}
	svc := newAvailabilityFixture(slots, &requestWriterStub{})

	slot, err := svc.CreateSlot(context.Background(), "teacher-1", CreateSlotRequest{
		DayOfWeek: int(time.Monday),
		StartTime: "09:00",
		EndTime:   "12:00",
		Level:     models.LevelBeginner,
	})
	require.NoError(t, err)
	assert.Equal(t, "slot-1", slot.ID)
	assert.Equal(t, "teacher-1", slot.TeacherID)
	assert.True(t, slot.Available)
	require.Len(t, slots.created, 1)
}

func TestCreateSlotValidation(t *testing.T) {
	svc := newAvailabilityFixture(&slotRepoStub{}, &requestWriterStub{})

	cases := []struct {
		name string
		req  CreateSlotRequest
	}{
		{"bad clock format", CreateSlotRequest{DayOfWeek: 1, StartTime: "9am", EndTime: "12:00", Level: models.LevelBeginner}},
		{"start after end", CreateSlotRequest{DayOfWeek: 1, StartTime: "14:00", EndTime: "12:00", Level: models.LevelBeginner}},
		{"start equals end", CreateSlotRequest{DayOfWeek: 1, StartTime: "12:00", EndTime: "12:00", Level: models.LevelBeginner}},
		{"unknown level", CreateSlotRequest{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", Level: "native"}},
		{"day out of range", CreateSlotRequest{DayOfWeek: 7, StartTime: "09:00", EndTime: "12:00", Level: models.LevelBeginner}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSlot(context.Background(), "teacher-1", tc.req)
			assertErrCode(t, err, appErrors.ErrValidation.Code)
		})
	}
}

func TestDeleteSlotNotFound(t *testing.T) {
	svc := newAvailabilityFixture(&slotRepoStub{deleted: false}, &requestWriterStub{})

	err := svc.DeleteSlot(context.Background(), "teacher-1", "missing")
	assertErrCode(t, err, appErrors.ErrNotFound.Code)
}

func TestCreateRequestStartsPending(t *testing.T) {
	requests := &requestWriterStub{}
	svc := newAvailabilityFixture(&slotRepoStub{}, requests)

	req, err := svc.CreateRequest(context.Background(), CreateAvailabilityRequest{
		StudentID:       "student-1",
		PreferredDate:   mondayDate,
		PreferredTime:   "10:00",
		PreferredLevel:  models.LevelIntermediate,
		DurationMinutes: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	require.NotNil(t, requests.created)
}

func TestCreateRequestRejectsBadClock(t *testing.T) {
	svc := newAvailabilityFixture(&slotRepoStub{}, &requestWriterStub{})

	_, err := svc.CreateRequest(context.Background(), CreateAvailabilityRequest{
		StudentID:      "student-1",
		PreferredDate:  mondayDate,
		PreferredTime:  "25:99",
		PreferredLevel: models.LevelBeginner,
	})
	assertErrCode(t, err, appErrors.ErrValidation.Code)
}

func TestExpirePendingUsesConfiguredTTL(t *testing.T) {
	requests := &requestWriterStub{expired: 3}
	svc := newAvailabilityFixture(&slotRepoStub{}, requests)

	count, err := svc.ExpirePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.WithinDuration(t, time.Now().UTC().Add(-48*time.Hour), requests.cutoff, 5*time.Second)
}
