package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

// SupportRepository stores contact requests.
type SupportRepository struct {
	db *sqlx.DB
}

// NewSupportRepository constructs the repository.
func NewSupportRepository(db *sqlx.DB) *SupportRepository {
	return &SupportRepository{db: db}
}

// Create inserts a support request.
func (r *SupportRepository) Create(ctx context.Context, req *models.SupportRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO support_requests (id, name, email, message, created_at) VALUES (:id, :name, :email, :message, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create support request: %w", err)
	}
	return nil
}

// List returns support requests newest first.
func (r *SupportRepository) List(ctx context.Context) ([]models.SupportRequest, error) {
	const query = `SELECT id, name, email, message, created_at FROM support_requests ORDER BY created_at DESC`
	var out []models.SupportRequest
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list support requests: %w", err)
	}
	return out, nil
}
