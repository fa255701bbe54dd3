package models

import "time"

// GoalUnit is the measurement dimension a group goal is tracked in.
type GoalUnit string

const (
	UnitLessons     GoalUnit = "lessons"
	UnitAssignments GoalUnit = "assignments"
	UnitHomework    GoalUnit = "homework"
	UnitPoints      GoalUnit = "points"
	UnitHours       GoalUnit = "hours"
	UnitOther       GoalUnit = "other"
)

// GroupGoal is a teacher-owned target for a study group. Treated as immutable
// once progress has been recorded against it.
type GroupGoal struct {
	ID          string    `db:"id" json:"id"`
	GroupID     string    `db:"group_id" json:"group_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	Title       string    `db:"title" json:"title"`
	Unit        GoalUnit  `db:"unit" json:"unit"`
	TargetValue int       `db:"target_value" json:"target_value"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// StudentGoalProgress is the engine-owned progress row, unique per
// (group_goal_id, student_id) and only ever written by recomputation.
type StudentGoalProgress struct {
	ID           string    `db:"id" json:"id"`
	GroupGoalID  string    `db:"group_goal_id" json:"group_goal_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CurrentValue int       `db:"current_value" json:"current_value"`
	Narrative    *string   `db:"narrative" json:"narrative,omitempty"`
	LastUpdated  time.Time `db:"last_updated" json:"last_updated"`
}

// StudentMetrics are the raw signals progress is derived from. All four are
// recomputed from the durable store on every call.
type StudentMetrics struct {
	AttendedLessons        int     `db:"attended_lessons" json:"attended_lessons"`
	HomeworkCompletionRate float64 `db:"homework_completion_rate" json:"homework_completion_rate"`
	ReviewScoreAvg         float64 `db:"review_score_avg" json:"review_score_avg"`
	ConversationConfidence float64 `db:"conversation_confidence" json:"conversation_confidence"`
}

// GoalProgressResult is returned by a recompute call.
type GoalProgressResult struct {
	GroupGoalID  string   `json:"group_goal_id"`
	StudentID    string   `json:"student_id"`
	CurrentValue int      `json:"current_value"`
	TargetValue  int      `json:"target_value"`
	Unit         GoalUnit `json:"unit"`
}
