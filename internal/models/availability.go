package models

import "time"

// Proficiency levels a teacher may declare and a student may request.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// TeacherAvailabilitySlot declares a recurring window in which a teacher is
// willing to teach a level. A teacher may hold several slots for the same
// day/level with different time ranges.
type TeacherAvailabilitySlot struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Level     string    `db:"level" json:"level"`
	Available bool      `db:"is_available" json:"is_available"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AvailabilityRequestStatus enumerates the lifecycle of a student request.
type AvailabilityRequestStatus string

const (
	RequestPending AvailabilityRequestStatus = "pending"
	RequestMatched AvailabilityRequestStatus = "matched"
	RequestExpired AvailabilityRequestStatus = "expired"
)

// StudentAvailabilityRequest is a student's ask for a lesson at a preferred
// date/time/level. It transitions to matched exactly once, by the matching
// engine, or expires if never matched.
type StudentAvailabilityRequest struct {
	ID              string                    `db:"id" json:"id"`
	StudentID       string                    `db:"student_id" json:"student_id"`
	PreferredDate   time.Time                 `db:"preferred_date" json:"preferred_date"`
	PreferredTime   string                    `db:"preferred_time" json:"preferred_time"`
	PreferredLevel  string                    `db:"preferred_level" json:"preferred_level"`
	DurationMinutes int                       `db:"duration_minutes" json:"duration_minutes"`
	Status          AvailabilityRequestStatus `db:"status" json:"status"`
	CreatedAt       time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                 `db:"updated_at" json:"updated_at"`
}

// CandidateProfile carries the metadata the scorer sees per candidate.
type CandidateProfile struct {
	TeacherID     string   `db:"teacher_id" json:"teacher_id"`
	FullName      string   `db:"full_name" json:"full_name"`
	Levels        []string `db:"-" json:"levels"`
	UpcomingCount int      `db:"upcoming_count" json:"upcoming_count"`
}
