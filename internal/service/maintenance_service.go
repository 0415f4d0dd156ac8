package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/jobs"
)

// Maintenance task names, shared by the admin endpoint, the CLI and the job queue.
const (
	TaskNormalize = "normalize"
	TaskRetention = "retention"
)

type identityRepository interface {
	ListIdentities(ctx context.Context) ([]models.ComplaintIdentity, error)
	UpdateIdentity(ctx context.Context, row models.ComplaintIdentity) error
}

type notificationPruner interface {
	PruneRead(ctx context.Context, retention time.Duration) (int64, error)
}

type exportCleaner interface {
	Cleanup(ttl time.Duration) ([]string, error)
}

type maintenanceRecorder interface {
	RecordMaintenance(task string, err error)
}

// MaintenanceConfig controls retention windows.
type MaintenanceConfig struct {
	NotificationRetention time.Duration
	ExportTTL             time.Duration
}

// MaintenanceService repairs legacy complaint rows and enforces retention.
type MaintenanceService struct {
	complaints    identityRepository
	notifications notificationPruner
	exports       exportCleaner
	metrics       maintenanceRecorder
	logger        *zap.Logger
	cfg           MaintenanceConfig
}

// NewMaintenanceService wires maintenance tasks. exports and metrics may be nil.
func NewMaintenanceService(complaints identityRepository, notifications notificationPruner, exports exportCleaner, metrics maintenanceRecorder, logger *zap.Logger, cfg MaintenanceConfig) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NotificationRetention <= 0 {
		cfg.NotificationRetention = 30 * 24 * time.Hour
	}
	return &MaintenanceService{
		complaints:    complaints,
		notifications: notifications,
		exports:       exports,
		metrics:       metrics,
		logger:        logger,
		cfg:           cfg,
	}
}

// NormalizeComplaints rewrites every complaint to its canonical status and identifier form.
// Rows with an unrecognized status are left untouched and counted as skipped. Running it
// twice yields zero updates the second time.
func (s *MaintenanceService) NormalizeComplaints(ctx context.Context) (models.NormalizeReport, error) {
	var report models.NormalizeReport
	rows, err := s.complaints.ListIdentities(ctx)
	if err != nil {
		s.observe(TaskNormalize, err)
		return report, appErrors.Internal(err, "failed to scan complaints")
	}

	for _, row := range rows {
		report.Scanned++
		status, ok := models.NormalizeStatus(row.Status)
		if !ok {
			report.Skipped++
			s.logger.Warn("skipped complaint with unknown status",
				zap.String("complaint_id", row.ID),
				zap.String("status", row.Status))
			continue
		}

		next := models.ComplaintIdentity{
			ID:         row.ID,
			Status:     string(status),
			StudentID:  canonicalID(row.StudentID),
			ResolverID: canonicalRef(row.ResolverID),
		}
		if identityEqual(row, next) {
			continue
		}
		if err := s.complaints.UpdateIdentity(ctx, next); err != nil {
			s.observe(TaskNormalize, err)
			return report, appErrors.Internal(err, fmt.Sprintf("failed to normalize complaint %s", row.ID))
		}
		report.Updated++
		s.logger.Debug("normalized complaint", zap.String("complaint_id", row.ID))
	}

	s.logger.Info("complaint normalization complete",
		zap.Int("scanned", report.Scanned),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped))
	s.observe(TaskNormalize, nil)
	return report, nil
}

// PruneNotifications deletes read notifications past retention and expired export files.
func (s *MaintenanceService) PruneNotifications(ctx context.Context) (models.RetentionReport, error) {
	report := models.RetentionReport{ExportsDeleted: []string{}}
	deleted, err := s.notifications.PruneRead(ctx, s.cfg.NotificationRetention)
	if err != nil {
		s.observe(TaskRetention, err)
		return report, err
	}
	report.NotificationsDeleted = deleted

	if s.exports != nil {
		removed, err := s.exports.Cleanup(s.cfg.ExportTTL)
		if err != nil {
			s.logger.Warn("export cleanup failed", zap.Error(err))
		} else {
			report.ExportsDeleted = removed
		}
	}

	s.logger.Info("retention complete",
		zap.Int64("notifications_deleted", report.NotificationsDeleted),
		zap.Int("exports_deleted", len(report.ExportsDeleted)))
	s.observe(TaskRetention, nil)
	return report, nil
}

// Run executes a named task on behalf of an admin.
func (s *MaintenanceService) Run(ctx context.Context, actor *models.JWTClaims, task string) (interface{}, error) {
	if !hasRole(actor, models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can run maintenance")
	}
	switch strings.ToLower(strings.TrimSpace(task)) {
	case TaskNormalize:
		return s.NormalizeComplaints(ctx)
	case TaskRetention:
		return s.PruneNotifications(ctx)
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown maintenance task %q", task))
}

// Register installs every task on q so it can be enqueued or scheduled.
func (s *MaintenanceService) Register(q *jobs.Queue) {
	q.Register(TaskNormalize, func(ctx context.Context, _ jobs.Job) error {
		_, err := s.NormalizeComplaints(ctx)
		return err
	})
	q.Register(TaskRetention, func(ctx context.Context, _ jobs.Job) error {
		_, err := s.PruneNotifications(ctx)
		return err
	})
}

func (s *MaintenanceService) observe(task string, err error) {
	if s.metrics != nil {
		s.metrics.RecordMaintenance(task, err)
	}
	if err != nil {
		s.logger.Error("maintenance task failed", zap.String("task", task), zap.Error(err))
	}
}

// canonicalID lower-cases well-formed UUIDs and trims anything else.
func canonicalID(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if id, err := uuid.Parse(trimmed); err == nil {
		return id.String()
	}
	return trimmed
}

func canonicalRef(raw *string) *string {
	if raw == nil {
		return nil
	}
	id := canonicalID(*raw)
	if id == "" {
		return nil
	}
	return &id
}

func identityEqual(a, b models.ComplaintIdentity) bool {
	if a.Status != b.Status || a.StudentID != b.StudentID {
		return false
	}
	switch {
	case a.ResolverID == nil && b.ResolverID == nil:
		return true
	case a.ResolverID == nil || b.ResolverID == nil:
		return false
	}
	return *a.ResolverID == *b.ResolverID
}
