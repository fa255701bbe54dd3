package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
)

// AvailabilityRepository manages teacher availability slots and answers the
// candidate query for the matching engine.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Candidates returns the distinct teachers holding an available slot for the
// level whose [start,end] range contains timeOfDay on dayOfWeek. Callers must
// not rely on the order; it is sorted only to keep downstream tie-breaking
// reproducible.
func (r *AvailabilityRepository) Candidates(ctx context.Context, level string, dayOfWeek int, timeOfDay string) ([]string, error) {
	const query = `SELECT DISTINCT teacher_id FROM teacher_availability_slots
		WHERE level = $1 AND day_of_week = $2 AND is_available = TRUE
		AND start_time <= $3::time AND end_time >= $3::time
		ORDER BY teacher_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, level, dayOfWeek, timeOfDay); err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	return ids, nil
}

// Profiles loads scorer-facing metadata for a candidate set: display name and
// the set of levels each teacher declares availability for.
func (r *AvailabilityRepository) Profiles(ctx context.Context, teacherIDs []string) ([]models.CandidateProfile, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT u.id AS teacher_id, u.full_name, array_agg(DISTINCT s.level) AS levels
		FROM users u
		JOIN teacher_availability_slots s ON s.teacher_id = u.id
		WHERE u.id IN (?)
		GROUP BY u.id, u.full_name
		ORDER BY u.id`, teacherIDs)
	if err != nil {
		return nil, fmt.Errorf("build profiles query: %w", err)
	}
	query = r.db.Rebind(query)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidate profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.CandidateProfile
	for rows.Next() {
		var profile models.CandidateProfile
		var levels pq.StringArray
		if err := rows.Scan(&profile.TeacherID, &profile.FullName, &levels); err != nil {
			return nil, fmt.Errorf("scan candidate profile: %w", err)
		}
		profile.Levels = []string(levels)
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// ListByTeacher returns all slots declared by a teacher.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailabilitySlot, error) {
	const query = `SELECT id, teacher_id, day_of_week, start_time, end_time, level, is_available, created_at, updated_at
		FROM teacher_availability_slots WHERE teacher_id = $1 ORDER BY day_of_week, start_time`
	var slots []models.TeacherAvailabilitySlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID); err != nil {
		return nil, fmt.Errorf("list availability slots: %w", err)
	}
	return slots, nil
}

// Create inserts a new availability slot.
func (r *AvailabilityRepository) Create(ctx context.Context, slot *models.TeacherAvailabilitySlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO teacher_availability_slots (id, teacher_id, day_of_week, start_time, end_time, level, is_available, created_at, updated_at)
		VALUES (:id, :teacher_id, :day_of_week, :start_time, :end_time, :level, :is_available, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create availability slot: %w", err)
	}
	return nil
}

// Delete removes a slot owned by the teacher. Returns sql.ErrNoRows semantics
// via affected-row count so callers can 404.
func (r *AvailabilityRepository) Delete(ctx context.Context, teacherID, slotID string) (bool, error) {
	const query = `DELETE FROM teacher_availability_slots WHERE id = $1 AND teacher_id = $2`
	res, err := r.db.ExecContext(ctx, query, slotID, teacherID)
	if err != nil {
		return false, fmt.Errorf("delete availability slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete availability slot: %w", err)
	}
	return affected > 0, nil
}
