package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type feedbackRepository interface {
	Create(ctx context.Context, f *models.Feedback) error
	Exists(ctx context.Context, complaintID, studentID string) (bool, error)
	ListByComplaint(ctx context.Context, complaintID string) ([]models.Feedback, error)
	ListAll(ctx context.Context) ([]models.Feedback, error)
}

type complaintFinder interface {
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
}

// FeedbackService records one rating per student per resolved complaint.
type FeedbackService struct {
	repo       feedbackRepository
	complaints complaintFinder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewFeedbackService constructs the ledger service.
func NewFeedbackService(repo feedbackRepository, complaints complaintFinder, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{repo: repo, complaints: complaints, validator: validate, logger: logger}
}

// Submit rates a complaint. The complaint must belong to the caller and be resolved, and a
// second submission for the same pair is rejected.
func (s *FeedbackService) Submit(ctx context.Context, actor *models.JWTClaims, complaintID string, req dto.FeedbackRequest) (*models.Feedback, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rating must be an integer between 1 and 5")
	}

	complaint, err := s.loadComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only rate your own complaints")
	}
	if status, _ := models.NormalizeStatus(string(complaint.Status)); status != models.StatusResolved {
		return nil, appErrors.ErrNotResolved
	}

	exists, err := s.repo.Exists(ctx, complaintID, actor.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check existing feedback")
	}
	if exists {
		return nil, appErrors.ErrFeedbackExists
	}

	feedback := &models.Feedback{
		ComplaintID: complaintID,
		StudentID:   actor.UserID,
		Rating:      req.Rating,
		Comment:     req.Comment,
	}
	if err := s.repo.Create(ctx, feedback); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrFeedbackExists
		}
		return nil, appErrors.Internal(err, "failed to save feedback")
	}
	return feedback, nil
}

// ForComplaint lists feedback on a complaint the caller can see.
func (s *FeedbackService) ForComplaint(ctx context.Context, actor *models.JWTClaims, complaintID string) ([]models.Feedback, error) {
	complaint, err := s.loadComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, complaint) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot view this complaint")
	}
	items, err := s.repo.ListByComplaint(ctx, complaintID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list feedback")
	}
	if items == nil {
		items = []models.Feedback{}
	}
	return items, nil
}

// All lists every feedback for admins.
func (s *FeedbackService) All(ctx context.Context, actor *models.JWTClaims) ([]models.Feedback, error) {
	if !hasRole(actor, models.RoleAdmin) {
		return nil, appErrors.ErrForbidden
	}
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list feedback")
	}
	if items == nil {
		items = []models.Feedback{}
	}
	return items, nil
}

func (s *FeedbackService) loadComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	complaint, err := s.complaints.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Internal(err, "failed to load complaint")
	}
	return complaint, nil
}
