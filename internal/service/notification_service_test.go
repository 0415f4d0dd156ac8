package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/mailer"
)

type stubNotificationRepo struct {
	created   []models.Notification
	createErr error
	owned     map[string]string
	read      map[string]bool
	cutoff    time.Time
}

func (s *stubNotificationRepo) CreateMany(ctx context.Context, items []models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, items...)
	return nil
}

func (s *stubNotificationRepo) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return nil, nil
}

func (s *stubNotificationRepo) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	if s.owned[id] != userID {
		return nil, sql.ErrNoRows
	}
	if s.read == nil {
		s.read = map[string]bool{}
	}
	s.read[id] = true
	return &models.Notification{ID: id, UserID: userID, Read: true}, nil
}

func (s *stubNotificationRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return 3, nil
}

type stubSender struct {
	sent []mailer.Message
	err  error
}

func (s *stubSender) Send(ctx context.Context, msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func TestNotifyAllCreatesOneRowPerUser(t *testing.T) {
	repo := &stubNotificationRepo{}
	svc := NewNotificationService(repo, &stubSender{}, zap.NewNop())

	require.NoError(t, svc.NotifyAll(context.Background(), []string{"a1", "a2", "a1", ""}, "New complaint", "/admin"))
	require.Len(t, repo.created, 2)
	assert.Equal(t, "a1", repo.created[0].UserID)
	assert.Equal(t, "a2", repo.created[1].UserID)
}

func TestNotifyAllSurfacesStoreFailure(t *testing.T) {
	svc := NewNotificationService(&stubNotificationRepo{createErr: errors.New("db down")}, &stubSender{}, zap.NewNop())
	err := svc.Notify(context.Background(), "u1", "msg", "/x")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestEmailFailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sender := &stubSender{err: errors.New("smtp timeout")}
	svc := NewNotificationService(&stubNotificationRepo{}, sender, zap.New(core))

	svc.Email(context.Background(), []string{"r@college.edu"}, "Complaint assigned", "<p>hi</p>")
	require.Len(t, sender.sent, 1)
	require.Equal(t, 1, logs.FilterMessage("email delivery failed").Len())

	svc.Email(context.Background(), []string{""}, "nobody", "")
	assert.Len(t, sender.sent, 1)
}

func TestMarkReadOnlyForOwner(t *testing.T) {
	repo := &stubNotificationRepo{owned: map[string]string{"n1": "u1"}}
	svc := NewNotificationService(repo, nil, nil)

	_, err := svc.MarkRead(context.Background(), "n1", "intruder")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	n, err := svc.MarkRead(context.Background(), "n1", "u1")
	require.NoError(t, err)
	assert.True(t, n.Read)

	n, err = svc.MarkRead(context.Background(), "n1", "u1")
	require.NoError(t, err)
	assert.True(t, n.Read)
}

func TestListReturnsEmptySlice(t *testing.T) {
	svc := NewNotificationService(&stubNotificationRepo{}, nil, nil)
	items, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, items)
}

func TestPruneReadUsesRetentionCutoff(t *testing.T) {
	repo := &stubNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)

	n, err := svc.PruneRead(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), repo.cutoff, time.Minute)
}
