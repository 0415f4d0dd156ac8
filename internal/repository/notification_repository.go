package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

// NotificationRepository stores per-user in-app notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateMany inserts one row per notification in a single statement.
func (r *NotificationRepository) CreateMany(ctx context.Context, items []models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now().UTC()
	values := make([]string, 0, len(items))
	args := make([]interface{}, 0, len(items)*5)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].CreatedAt = now
		items[i].Read = false
		n := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, FALSE, $%d)", n+1, n+2, n+3, n+4, n+5))
		args = append(args, items[i].ID, items[i].UserID, items[i].Message, items[i].Link, now)
	}
	query := `INSERT INTO notifications (id, user_id, message, link, read, created_at) VALUES ` + strings.Join(values, ", ")
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	return nil
}

// ListByUser returns the user's notifications newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	const query = `SELECT id, user_id, message, link, read, created_at FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	var out []models.Notification
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkRead flips the read flag on a notification owned by userID. Already-read rows stay read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	const query = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2
RETURNING id, user_id, message, link, read, created_at`
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, query, id, userID); err != nil {
		return nil, notFoundOr(err, "mark notification read")
	}
	return &n, nil
}

// DeleteReadBefore removes read notifications created before cutoff.
func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune notifications: %w", err)
	}
	return res.RowsAffected()
}
