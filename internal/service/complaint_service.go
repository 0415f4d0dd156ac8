package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/storage"
)

type complaintRepository interface {
	Create(ctx context.Context, c *models.Complaint) error
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
	Assign(ctx context.Context, id, resolverID string, status models.ComplaintStatus) (*models.Complaint, error)
	AppendComment(ctx context.Context, id string, comment models.Comment) (*models.Complaint, error)
	Resolve(ctx context.Context, id, actorID, resolutionComment string) (*models.Complaint, error)
	UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus, actorID string, resolutionComment *string) (*models.Complaint, error)
	Delete(ctx context.Context, id string) (*string, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByRole(ctx context.Context, roles ...models.UserRole) ([]models.UserContact, error)
}

type complaintNotifier interface {
	Notify(ctx context.Context, userID, message, link string) error
	NotifyAll(ctx context.Context, userIDs []string, message, link string) error
	Email(ctx context.Context, to []string, subject, html string)
}

type eventRecorder interface {
	RecordComplaintEvent(event string)
}

// ComplaintConfig tunes lifecycle validation and notification links.
type ComplaintConfig struct {
	EnforceResolverRole  bool
	TitleMaxLength       int
	DescriptionMinLength int
	DescriptionMaxLength int
	MaxAttachmentBytes   int64

	AdminDashboardURL    string
	ResolverDashboardURL string
	StudentDashboardURL  string
}

// ComplaintService owns every complaint lifecycle transition.
type ComplaintService struct {
	repo      complaintRepository
	users     userLookup
	notifier  complaintNotifier
	blobs     uploadStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ComplaintConfig
	events    eventRecorder
}

// NewComplaintService constructs the lifecycle service.
func NewComplaintService(repo complaintRepository, users userLookup, notifier complaintNotifier, blobs uploadStore, validate *validator.Validate, logger *zap.Logger, cfg ComplaintConfig) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.TitleMaxLength <= 0 {
		cfg.TitleMaxLength = 100
	}
	if cfg.DescriptionMinLength <= 0 {
		cfg.DescriptionMinLength = 20
	}
	if cfg.DescriptionMaxLength <= 0 {
		cfg.DescriptionMaxLength = 1000
	}
	if cfg.MaxAttachmentBytes <= 0 {
		cfg.MaxAttachmentBytes = 5 << 20
	}
	if cfg.AdminDashboardURL == "" {
		cfg.AdminDashboardURL = "/admin-dashboard/complaints"
	}
	if cfg.ResolverDashboardURL == "" {
		cfg.ResolverDashboardURL = "/resolver-dashboard/complaints"
	}
	if cfg.StudentDashboardURL == "" {
		cfg.StudentDashboardURL = "/student-dashboard/complaints"
	}
	return &ComplaintService{
		repo:      repo,
		users:     users,
		notifier:  notifier,
		blobs:     blobs,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// WithEvents attaches a lifecycle event counter.
func (s *ComplaintService) WithEvents(events eventRecorder) *ComplaintService {
	s.events = events
	return s
}

func (s *ComplaintService) record(event string) {
	if s.events != nil {
		s.events.RecordComplaintEvent(event)
	}
}

// Submit files a new pending complaint for the calling student and alerts every admin.
func (s *ComplaintService) Submit(ctx context.Context, actor *models.JWTClaims, req dto.SubmitComplaintRequest, file *dto.Upload) (*models.Complaint, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can submit complaints")
	}
	req = trimSubmit(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all fields are required")
	}
	if n := utf8.RuneCountInString(req.Title); n > s.cfg.TitleMaxLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("title must be at most %d characters", s.cfg.TitleMaxLength))
	}
	if n := utf8.RuneCountInString(req.Description); n < s.cfg.DescriptionMinLength || n > s.cfg.DescriptionMaxLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("description must be between %d and %d characters", s.cfg.DescriptionMinLength, s.cfg.DescriptionMaxLength))
	}

	complaint := &models.Complaint{
		Title:       req.Title,
		Description: req.Description,
		Branch:      req.Branch,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      models.StatusPending,
		StudentID:   actor.UserID,
		Comments:    models.Comments{},
	}
	if req.InchargeName != "" {
		complaint.InchargeName = &req.InchargeName
	}

	if file != nil {
		key, err := s.storeAttachment(*file)
		if err != nil {
			return nil, err
		}
		name := file.Filename
		complaint.FileKey = &key
		complaint.FileName = &name
	}

	if err := s.repo.Create(ctx, complaint); err != nil {
		if complaint.FileKey != nil {
			s.removeBlob(*complaint.FileKey)
		}
		return nil, appErrors.Internal(err, "failed to submit complaint")
	}

	s.announceSubmission(ctx, complaint)
	s.record("submitted")
	return complaint, nil
}

// List returns all complaints, optionally narrowed to one status family.
func (s *ComplaintService) List(ctx context.Context, actor *models.JWTClaims, rawStatus string) ([]models.Complaint, error) {
	if !hasRole(actor, models.RoleAdmin, models.RoleResolver) {
		return nil, appErrors.ErrForbidden
	}
	filter := models.ComplaintFilter{}
	if strings.TrimSpace(rawStatus) != "" {
		status, ok := models.NormalizeStatus(rawStatus)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Statuses = []models.ComplaintStatus{status}
	}
	return s.list(ctx, filter)
}

// Get returns one complaint visible to the caller.
func (s *ComplaintService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Complaint, error) {
	complaint, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, complaint) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot view this complaint")
	}
	return complaint, nil
}

// Assign forwards a complaint to a resolver. The resolver is checked before the complaint
// is touched so a bad id leaves it unchanged.
func (s *ComplaintService) Assign(ctx context.Context, actor *models.JWTClaims, id string, req dto.AssignComplaintRequest) (*models.Complaint, error) {
	if !hasRole(actor, models.RoleAdmin, models.RoleResolver) {
		return nil, appErrors.ErrForbidden
	}
	req.ResolverID = strings.TrimSpace(req.ResolverID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "resolver id is required")
	}

	resolver, err := s.users.FindByID(ctx, req.ResolverID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resolver not found")
		}
		return nil, appErrors.Internal(err, "failed to load resolver")
	}
	if s.cfg.EnforceResolverRole && resolver.Role != models.RoleResolver {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee must have the resolver role")
	}

	complaint, err := s.repo.Assign(ctx, id, resolver.ID, models.StatusForwarded)
	if err != nil {
		return nil, s.mapRepoError(err, "failed to assign complaint")
	}

	msg := fmt.Sprintf("A complaint has been forwarded to you (ID: %s)", complaint.ID)
	if err := s.notifier.Notify(ctx, resolver.ID, msg, s.cfg.ResolverDashboardURL); err != nil {
		s.logger.Warn("assignment notification failed", zap.String("complaint_id", complaint.ID), zap.Error(err))
	}
	if html, err := renderMail(assignedMail, mailView{ID: complaint.ID, Title: complaint.Title, Link: s.cfg.ResolverDashboardURL}); err == nil {
		s.notifier.Email(ctx, []string{resolver.Email}, "New Complaint Assigned", html)
	} else {
		s.logger.Warn("render assignment email failed", zap.Error(err))
	}

	s.logger.Info("complaint assigned",
		zap.String("complaint_id", complaint.ID),
		zap.String("resolver_id", resolver.ID),
		zap.String("actor_id", actor.UserID))
	s.record("assigned")
	return complaint, nil
}

// Comment appends a comment authored by the caller.
func (s *ComplaintService) Comment(ctx context.Context, actor *models.JWTClaims, id string, req dto.CommentRequest) (*models.Complaint, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "comment cannot be empty")
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	complaint, err := s.repo.AppendComment(ctx, id, models.Comment{Text: req.Comment, AuthorID: actor.UserID, CreatedAt: nowUTC()})
	if err != nil {
		return nil, s.mapRepoError(err, "failed to add comment")
	}
	s.record("commented")
	return complaint, nil
}

// Resolve closes a complaint with a resolution comment and tells the student.
func (s *ComplaintService) Resolve(ctx context.Context, actor *models.JWTClaims, id string, req dto.ResolveComplaintRequest) (*models.Complaint, error) {
	if !hasRole(actor, models.RoleAdmin, models.RoleResolver) {
		return nil, appErrors.ErrForbidden
	}
	req.ResolutionComment = strings.TrimSpace(req.ResolutionComment)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "resolution comment is required")
	}

	complaint, err := s.repo.Resolve(ctx, id, actor.UserID, req.ResolutionComment)
	if err != nil {
		return nil, s.mapRepoError(err, "failed to resolve complaint")
	}
	s.announceResolution(ctx, complaint)
	s.record("resolved")
	return complaint, nil
}

// UpdateStatus overwrites the status with any canonical value. Skipping states is allowed.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*models.Complaint, error) {
	if !hasRole(actor, models.RoleAdmin, models.RoleResolver) {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "status is required")
	}
	status, ok := models.NormalizeStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of pending, in progress, forwarded, resolved")
	}

	var resolution *string
	if status == models.StatusResolved {
		comment := strings.TrimSpace(req.ResolutionComment)
		if comment == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "resolution comment is required to resolve a complaint")
		}
		resolution = &comment
	}

	complaint, err := s.repo.UpdateStatus(ctx, id, status, actor.UserID, resolution)
	if err != nil {
		return nil, s.mapRepoError(err, "failed to update complaint status")
	}
	if status == models.StatusResolved {
		s.announceResolution(ctx, complaint)
	}
	s.record("status_" + strings.ReplaceAll(string(status), " ", "_"))
	return complaint, nil
}

// Delete hard-deletes a complaint and its attachment. Feedback and notifications are kept.
func (s *ComplaintService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if !hasRole(actor, models.RoleAdmin) {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins can delete complaints")
	}
	fileKey, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.mapRepoError(err, "failed to delete complaint")
	}
	if fileKey != nil && *fileKey != "" {
		s.removeBlob(*fileKey)
	}
	s.logger.Info("complaint deleted", zap.String("complaint_id", id), zap.String("actor_id", actor.UserID))
	s.record("deleted")
	return nil
}

// History returns complaints the caller filed or is assigned to.
func (s *ComplaintService) History(ctx context.Context, actor *models.JWTClaims) ([]models.Complaint, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.list(ctx, models.ComplaintFilter{Participant: actor.UserID})
}

// ListByResolver returns complaints assigned to resolverID; activeOnly keeps the
// forwarded and in progress families.
func (s *ComplaintService) ListByResolver(ctx context.Context, actor *models.JWTClaims, resolverID string, activeOnly bool) ([]models.Complaint, error) {
	if !isSelfOrAdmin(actor, resolverID) {
		return nil, appErrors.ErrForbidden
	}
	filter := models.ComplaintFilter{ResolverID: resolverID}
	if activeOnly {
		for _, st := range models.CanonicalStatuses {
			if st.Assigned() {
				filter.Statuses = append(filter.Statuses, st)
			}
		}
	}
	return s.list(ctx, filter)
}

// ListForwarded returns forwarded complaints, optionally for one resolver.
func (s *ComplaintService) ListForwarded(ctx context.Context, actor *models.JWTClaims, resolverID string) ([]models.Complaint, error) {
	if !hasRole(actor, models.RoleAdmin, models.RoleResolver) {
		return nil, appErrors.ErrForbidden
	}
	if actor.Role == models.RoleResolver {
		resolverID = actor.UserID
	}
	return s.list(ctx, models.ComplaintFilter{
		Statuses:   []models.ComplaintStatus{models.StatusForwarded},
		ResolverID: strings.TrimSpace(resolverID),
	})
}

func (s *ComplaintService) list(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error) {
	complaints, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list complaints")
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}
	return complaints, nil
}

func (s *ComplaintService) load(ctx context.Context, id string) (*models.Complaint, error) {
	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, "failed to load complaint")
	}
	return complaint, nil
}

func (s *ComplaintService) storeAttachment(file dto.Upload) (string, error) {
	if file.Size > s.cfg.MaxAttachmentBytes {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, "attachment exceeds size limit")
	}
	key := storage.NewKey("complaints", file.Filename)
	if _, err := s.blobs.PutLimited(key, file.Body, s.cfg.MaxAttachmentBytes); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", appErrors.Clone(appErrors.ErrPayloadTooLarge, "attachment exceeds size limit")
		}
		return "", appErrors.Internal(err, "failed to store attachment")
	}
	return key, nil
}

func (s *ComplaintService) announceSubmission(ctx context.Context, c *models.Complaint) {
	admins, err := s.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Warn("load admins for notification failed", zap.String("complaint_id", c.ID), zap.Error(err))
		return
	}
	ids := make([]string, 0, len(admins))
	emails := make([]string, 0, len(admins))
	for _, a := range admins {
		ids = append(ids, a.ID)
		emails = append(emails, a.Email)
	}
	if err := s.notifier.NotifyAll(ctx, ids, "New complaint submitted: "+c.Title, s.cfg.AdminDashboardURL); err != nil {
		s.logger.Warn("submission notification failed", zap.String("complaint_id", c.ID), zap.Error(err))
	}
	html, err := renderMail(newComplaintMail, mailView{
		Title:       c.Title,
		Branch:      c.Branch,
		Category:    c.Category,
		Priority:    c.Priority,
		Description: c.Description,
		Link:        s.cfg.AdminDashboardURL,
	})
	if err != nil {
		s.logger.Warn("render submission email failed", zap.Error(err))
		return
	}
	s.notifier.Email(ctx, emails, "New Complaint Submitted", html)
}

func (s *ComplaintService) announceResolution(ctx context.Context, c *models.Complaint) {
	if err := s.notifier.Notify(ctx, c.StudentID, "Your complaint has been resolved: "+c.Title, s.cfg.StudentDashboardURL); err != nil {
		s.logger.Warn("resolution notification failed", zap.String("complaint_id", c.ID), zap.Error(err))
	}
	student, err := s.users.FindByID(ctx, c.StudentID)
	if err != nil {
		s.logger.Warn("load student for resolution email failed", zap.String("complaint_id", c.ID), zap.Error(err))
		return
	}
	resolution := ""
	if c.ResolutionComment != nil {
		resolution = *c.ResolutionComment
	}
	html, err := renderMail(resolvedMail, mailView{Title: c.Title, Resolution: resolution, Link: s.cfg.StudentDashboardURL})
	if err != nil {
		s.logger.Warn("render resolution email failed", zap.Error(err))
		return
	}
	s.notifier.Email(ctx, []string{student.Email}, "Complaint Resolved", html)
}

func (s *ComplaintService) mapRepoError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
	}
	return appErrors.Internal(err, msg)
}

func (s *ComplaintService) removeBlob(key string) {
	if err := s.blobs.Delete(key); err != nil {
		s.logger.Warn("failed to remove blob", zap.String("key", key), zap.Error(err))
	}
}

func trimSubmit(req dto.SubmitComplaintRequest) dto.SubmitComplaintRequest {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Branch = strings.TrimSpace(req.Branch)
	req.Category = strings.TrimSpace(req.Category)
	req.Priority = strings.TrimSpace(req.Priority)
	req.InchargeName = strings.TrimSpace(req.InchargeName)
	return req
}

func canView(actor *models.JWTClaims, c *models.Complaint) bool {
	if actor == nil {
		return false
	}
	if actor.Role == models.RoleAdmin || c.StudentID == actor.UserID {
		return true
	}
	return c.ResolverID != nil && *c.ResolverID == actor.UserID
}
