package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/mailer"
)

type notificationRepository interface {
	CreateMany(ctx context.Context, items []models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationService fans lifecycle events out to in-app notifications and email.
type NotificationService struct {
	repo   notificationRepository
	mail   mailer.Sender
	logger *zap.Logger
}

// NewNotificationService wires the fan-out. A nil sender falls back to logging.
func NewNotificationService(repo notificationRepository, mail mailer.Sender, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mail == nil {
		mail = mailer.NewLogSender(logger)
	}
	return &NotificationService{repo: repo, mail: mail, logger: logger}
}

// Notify creates a single notification.
func (s *NotificationService) Notify(ctx context.Context, userID, message, link string) error {
	return s.NotifyAll(ctx, []string{userID}, message, link)
}

// NotifyAll creates one independently readable notification per user.
func (s *NotificationService) NotifyAll(ctx context.Context, userIDs []string, message, link string) error {
	items := make([]models.Notification, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, models.Notification{UserID: id, Message: message, Link: link})
	}
	if len(items) == 0 {
		return nil
	}
	if err := s.repo.CreateMany(ctx, items); err != nil {
		return appErrors.Internal(err, "failed to create notifications")
	}
	return nil
}

// Email sends one message once. Failures are logged and never returned.
func (s *NotificationService) Email(ctx context.Context, to []string, subject, html string) {
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		s.logger.Warn("email skipped, no recipients", zap.String("subject", subject))
		return
	}
	if err := s.mail.Send(ctx, mailer.Message{To: recipients, Subject: subject, HTML: html}); err != nil {
		s.logger.Error("email delivery failed",
			zap.Strings("to", recipients),
			zap.String("subject", subject),
			zap.Error(err))
	}
}

// List returns the caller's notifications newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags one of the caller's notifications as read. Notifications owned by
// someone else are reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Internal(err, "failed to update notification")
	}
	return n, nil
}

// PruneRead deletes read notifications older than retention.
func (s *NotificationService) PruneRead(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	n, err := s.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to prune notifications")
	}
	return n, nil
}
