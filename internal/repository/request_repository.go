package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
)

// RequestRepository manages student availability requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs a RequestRepository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new pending request.
func (r *RequestRepository) Create(ctx context.Context, req *models.StudentAvailabilityRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	const query = `INSERT INTO student_availability_requests (id, student_id, preferred_date, preferred_time, preferred_level, duration_minutes, status, created_at, updated_at)
		VALUES (:id, :student_id, :preferred_date, :preferred_time, :preferred_level, :duration_minutes, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create availability request: %w", err)
	}
	return nil
}

// FindByID fetches a request by ID.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.StudentAvailabilityRequest, error) {
	const query = `SELECT id, student_id, preferred_date, preferred_time, preferred_level, duration_minutes, status, created_at, updated_at
		FROM student_availability_requests WHERE id = $1`
	var req models.StudentAvailabilityRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// ListByStudent returns a student's requests, newest first.
func (r *RequestRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentAvailabilityRequest, error) {
	const query = `SELECT id, student_id, preferred_date, preferred_time, preferred_level, duration_minutes, status, created_at, updated_at
		FROM student_availability_requests WHERE student_id = $1 ORDER BY created_at DESC`
	var requests []models.StudentAvailabilityRequest
	if err := r.db.SelectContext(ctx, &requests, query, studentID); err != nil {
		return nil, fmt.Errorf("list availability requests: %w", err)
	}
	return requests, nil
}

// ExpireStale marks pending requests older than cutoff as expired and returns
// how many rows changed.
func (r *RequestRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `UPDATE student_availability_requests SET status = $1, updated_at = $2 WHERE status = $3 AND created_at < $4`
	res, err := r.db.ExecContext(ctx, query, models.RequestExpired, time.Now().UTC(), models.RequestPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire availability requests: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire availability requests: %w", err)
	}
	return affected, nil
}
