package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/storage"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByRole(ctx context.Context, roles ...models.UserRole) ([]models.UserContact, error)
	UpdateProfilePic(ctx context.Context, id string, key *string) error
	Delete(ctx context.Context, id string) error
}

type uploadStore interface {
	PutLimited(key string, body io.Reader, limit int64) (int64, error)
	Delete(key string) error
}

// UserConfig controls profile picture uploads.
type UserConfig struct {
	MaxPictureBytes int64
	PictureTypes    []string
}

// UserService serves the user directory: profiles, pictures, resolver lookups.
type UserService struct {
	repo   userRepository
	blobs  uploadStore
	logger *zap.Logger
	cfg    UserConfig
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, blobs uploadStore, logger *zap.Logger, cfg UserConfig) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPictureBytes <= 0 {
		cfg.MaxPictureBytes = 5 << 20
	}
	if len(cfg.PictureTypes) == 0 {
		cfg.PictureTypes = []string{"image/*"}
	}
	return &UserService{repo: repo, blobs: blobs, logger: logger, cfg: cfg}
}

// Get returns a user profile.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// ListResolvers returns every user holding the resolver role.
func (s *UserService) ListResolvers(ctx context.Context) ([]models.UserContact, error) {
	resolvers, err := s.repo.ListByRole(ctx, models.RoleResolver)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list resolvers")
	}
	return resolvers, nil
}

// UpdatePicture stores a new profile picture and removes the previous one.
func (s *UserService) UpdatePicture(ctx context.Context, id string, upload dto.Upload) (*models.User, error) {
	if !s.pictureTypeAllowed(upload.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only image files are allowed")
	}
	if upload.Size > s.cfg.MaxPictureBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "profile picture exceeds size limit")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.NewKey("profiles", upload.Filename)
	if _, err := s.blobs.PutLimited(key, upload.Body, s.cfg.MaxPictureBytes); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "profile picture exceeds size limit")
		}
		return nil, appErrors.Internal(err, "failed to store profile picture")
	}

	if err := s.repo.UpdateProfilePic(ctx, id, &key); err != nil {
		s.removeBlob(key)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to update profile picture")
	}

	if user.ProfilePic != nil && *user.ProfilePic != "" {
		s.removeBlob(*user.ProfilePic)
	}
	user.ProfilePic = &key
	return user, nil
}

// RemovePicture deletes the stored picture and clears the reference.
func (s *UserService) RemovePicture(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.ProfilePic == nil || *user.ProfilePic == "" {
		return appErrors.Clone(appErrors.ErrNotFound, "no profile picture to remove")
	}
	if err := s.repo.UpdateProfilePic(ctx, id, nil); err != nil {
		return appErrors.Internal(err, "failed to clear profile picture")
	}
	s.removeBlob(*user.ProfilePic)
	return nil
}

// Delete removes the account and its picture. Complaints the user owns are kept.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to delete user")
	}
	if user.ProfilePic != nil && *user.ProfilePic != "" {
		s.removeBlob(*user.ProfilePic)
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

func (s *UserService) pictureTypeAllowed(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ct == "" {
		return false
	}
	for _, pattern := range s.cfg.PictureTypes {
		if ok, _ := path.Match(strings.ToLower(pattern), ct); ok {
			return true
		}
	}
	return false
}

func (s *UserService) removeBlob(key string) {
	if err := s.blobs.Delete(key); err != nil {
		s.logger.Warn("failed to remove blob", zap.String("key", key), zap.Error(err))
	}
}
