package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type memFeedbackRepo struct {
	items []models.Feedback
}

func (m *memFeedbackRepo) Create(ctx context.Context, f *models.Feedback) error {
	for _, existing := range m.items {
		if existing.ComplaintID == f.ComplaintID && existing.StudentID == f.StudentID {
			return repository.ErrDuplicate
		}
	}
	f.ID = "f-new"
	m.items = append(m.items, *f)
	return nil
}

func (m *memFeedbackRepo) Exists(ctx context.Context, complaintID, studentID string) (bool, error) {
	for _, existing := range m.items {
		if existing.ComplaintID == complaintID && existing.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memFeedbackRepo) ListByComplaint(ctx context.Context, complaintID string) ([]models.Feedback, error) {
	return nil, nil
}

func (m *memFeedbackRepo) ListAll(ctx context.Context) ([]models.Feedback, error) {
	return m.items, nil
}

func resolvedComplaint(id string) models.Complaint {
	c := pendingComplaint(id)
	c.Status = "Resolved"
	return c
}

func TestFeedbackRejectedSecondTime(t *testing.T) {
	complaints := newMemComplaintRepo(resolvedComplaint("c1"))
	svc := NewFeedbackService(&memFeedbackRepo{}, complaints, nil, nil)

	fb, err := svc.Submit(context.Background(), studentActor, "c1", dto.FeedbackRequest{Rating: 5, Comment: "great"})
	require.NoError(t, err)
	assert.Equal(t, 5, fb.Rating)

	_, err = svc.Submit(context.Background(), studentActor, "c1", dto.FeedbackRequest{Rating: 1, Comment: "changed my mind"})
	assert.ErrorIs(t, err, appErrors.ErrFeedbackExists)
}

func TestFeedbackRatingBounds(t *testing.T) {
	complaints := newMemComplaintRepo(resolvedComplaint("c1"))
	svc := NewFeedbackService(&memFeedbackRepo{}, complaints, nil, nil)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.Submit(context.Background(), studentActor, "c1", dto.FeedbackRequest{Rating: rating})
		assert.ErrorIs(t, err, appErrors.ErrValidation, rating)
	}
}

func TestFeedbackPreconditions(t *testing.T) {
	complaints := newMemComplaintRepo(pendingComplaint("open"), resolvedComplaint("done"))
	svc := NewFeedbackService(&memFeedbackRepo{}, complaints, nil, nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, studentActor, "missing", dto.FeedbackRequest{Rating: 3})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Submit(ctx, studentActor, "open", dto.FeedbackRequest{Rating: 3})
	assert.ErrorIs(t, err, appErrors.ErrNotResolved)

	_, err = svc.Submit(ctx, &models.JWTClaims{UserID: "s2", Role: models.RoleStudent}, "done", dto.FeedbackRequest{Rating: 3})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestFeedbackListing(t *testing.T) {
	complaints := newMemComplaintRepo(resolvedComplaint("c1"))
	svc := NewFeedbackService(&memFeedbackRepo{}, complaints, nil, nil)

	items, err := svc.ForComplaint(context.Background(), studentActor, "c1")
	require.NoError(t, err)
	assert.NotNil(t, items)

	_, err = svc.All(context.Background(), studentActor)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.All(context.Background(), adminActor)
	assert.NoError(t, err)
}
