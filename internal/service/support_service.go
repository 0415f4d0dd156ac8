package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type supportRepository interface {
	Create(ctx context.Context, req *models.SupportRequest) error
	List(ctx context.Context) ([]models.SupportRequest, error)
}

// SupportService handles the public contact form.
type SupportService struct {
	repo      supportRepository
	validator *validator.Validate
	logger    *zap.Logger
}

func NewSupportService(repo supportRepository, validate *validator.Validate, logger *zap.Logger) *SupportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SupportService{repo: repo, validator: validate, logger: logger}
}

func (s *SupportService) Create(ctx context.Context, req dto.SupportRequest) (*models.SupportRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, email and message are required")
	}
	record := &models.SupportRequest{Name: req.Name, Email: req.Email, Message: req.Message}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Internal(err, "failed to save support request")
	}
	return record, nil
}

func (s *SupportService) List(ctx context.Context, actor *models.JWTClaims) ([]models.SupportRequest, error) {
	if !hasRole(actor, models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can view support requests")
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list support requests")
	}
	if items == nil {
		items = []models.SupportRequest{}
	}
	return items, nil
}
