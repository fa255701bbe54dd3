package models

import "time"

// LessonStatus enumerates lesson lifecycle states.
type LessonStatus string

const (
	LessonScheduled  LessonStatus = "scheduled"
	LessonInProgress LessonStatus = "in_progress"
	LessonCompleted  LessonStatus = "completed"
	LessonCancelled  LessonStatus = "cancelled"
)

// Terminal reports whether no further transition may leave the status.
func (s LessonStatus) Terminal() bool {
	return s == LessonCompleted || s == LessonCancelled
}

// CanTransitionTo validates the forward-only lifecycle. Completion may jump
// from any non-terminal state because lesson end is signalled externally.
func (s LessonStatus) CanTransitionTo(next LessonStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case LessonInProgress:
		return s == LessonScheduled
	case LessonCompleted:
		return true
	case LessonCancelled:
		return s == LessonScheduled || s == LessonInProgress
	default:
		return false
	}
}

// Lesson is one booked session between a student and a teacher.
type Lesson struct {
	ID            string       `db:"id" json:"id"`
	StudentID     string       `db:"student_id" json:"student_id"`
	TeacherID     *string      `db:"teacher_id" json:"teacher_id,omitempty"`
	ScheduledAt   time.Time    `db:"scheduled_at" json:"scheduled_at"`
	DurationMin   int          `db:"duration_minutes" json:"duration_minutes"`
	Level         string       `db:"level" json:"level"`
	Status        LessonStatus `db:"status" json:"status"`
	IsVideoLesson bool         `db:"is_video_lesson" json:"is_video_lesson"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// VideoLesson is the 1:1 video companion of a lesson. It mirrors the lesson
// lifecycle but its meeting link may be replaced by the teacher at any time.
type VideoLesson struct {
	ID          string       `db:"id" json:"id"`
	LessonID    string       `db:"lesson_id" json:"lesson_id"`
	MeetingLink string       `db:"meeting_link" json:"meeting_link"`
	AIInsights  *string      `db:"ai_insights" json:"ai_insights,omitempty"`
	Status      LessonStatus `db:"status" json:"status"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// LessonFilter captures filtering options for listing lessons.
type LessonFilter struct {
	StudentID string
	TeacherID string
	Status    *LessonStatus
	From      *time.Time
	Page      int
	PageSize  int
}

// MatchResult is the handle returned to the caller after a successful match.
type MatchResult struct {
	LessonID      string  `json:"lesson_id"`
	TeacherID     string  `json:"teacher_id"`
	VideoLessonID *string `json:"video_lesson_id,omitempty"`
}
