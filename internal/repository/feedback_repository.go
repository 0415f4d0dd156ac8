package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

// FeedbackRepository stores complaint ratings.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts feedback; the (complaint_id, student_id) unique index yields ErrDuplicate.
func (r *FeedbackRepository) Create(ctx context.Context, f *models.Feedback) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO feedbacks (id, complaint_id, student_id, rating, comment, created_at)
VALUES (:id, :complaint_id, :student_id, :rating, :comment, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, f); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// Exists reports whether the student already rated the complaint.
func (r *FeedbackRepository) Exists(ctx context.Context, complaintID, studentID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM feedbacks WHERE complaint_id = $1 AND student_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, complaintID, studentID); err != nil {
		return false, fmt.Errorf("check feedback: %w", err)
	}
	return exists, nil
}

// ListByComplaint returns feedback for one complaint with the student's name.
func (r *FeedbackRepository) ListByComplaint(ctx context.Context, complaintID string) ([]models.Feedback, error) {
	const query = `SELECT f.id, f.complaint_id, f.student_id, f.rating, COALESCE(f.comment, '') AS comment, f.created_at,
COALESCE(u.name, '') AS student_name, '' AS complaint_title
FROM feedbacks f LEFT JOIN users u ON u.id = f.student_id
WHERE f.complaint_id = $1 ORDER BY f.created_at DESC`
	var out []models.Feedback
	if err := r.db.SelectContext(ctx, &out, query, complaintID); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return out, nil
}

// ListAll returns every feedback with complaint title and student name.
func (r *FeedbackRepository) ListAll(ctx context.Context) ([]models.Feedback, error) {
	const query = `SELECT f.id, f.complaint_id, f.student_id, f.rating, COALESCE(f.comment, '') AS comment, f.created_at,
COALESCE(u.name, '') AS student_name, COALESCE(c.title, '') AS complaint_title
FROM feedbacks f
LEFT JOIN users u ON u.id = f.student_id
LEFT JOIN complaints c ON c.id = f.complaint_id
ORDER BY f.created_at DESC`
	var out []models.Feedback
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list all feedback: %w", err)
	}
	return out, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	return fmt.Errorf("%s: %w", op, err)
}
