// Package app assembles repositories, services and handlers from configuration.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/handler"
	"github.com/noah-isme/complaint-desk-api/internal/repository"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	"github.com/noah-isme/complaint-desk-api/pkg/config"
	"github.com/noah-isme/complaint-desk-api/pkg/database"
	"github.com/noah-isme/complaint-desk-api/pkg/jobs"
	"github.com/noah-isme/complaint-desk-api/pkg/mailer"
	"github.com/noah-isme/complaint-desk-api/pkg/storage"
)

// App holds the wired object graph.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Gateway *database.Gateway
	Metrics *service.MetricsService
	Queue   *jobs.Queue

	Auth          *service.AuthService
	Users         *service.UserService
	Complaints    *service.ComplaintService
	Stats         *service.StatsService
	Notifications *service.NotificationService
	Feedback      *service.FeedbackService
	Support       *service.SupportService
	Exports       *service.ExportService
	Maintenance   *service.MaintenanceService
}

// New connects to the database and builds every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	gw, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	uploads, err := storage.NewBlobStore(cfg.Uploads.Dir)
	if err != nil {
		_ = gw.Close()
		return nil, fmt.Errorf("init uploads store: %w", err)
	}
	exportsStore, err := storage.NewBlobStore(cfg.Exports.Dir)
	if err != nil {
		_ = gw.Close()
		return nil, fmt.Errorf("init exports store: %w", err)
	}

	secret := cfg.Exports.SignedURLSecret
	if secret == "" {
		secret = cfg.JWT.Secret
	}

	metrics := service.NewMetricsService()
	gw.OnHealthChange(metrics.SetDatabaseUp)

	validate := validator.New()
	db := gw.DB()
	userRepo := repository.NewUserRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	supportRepo := repository.NewSupportRepository(db)

	notifications := service.NewNotificationService(notificationRepo, mailer.New(cfg.Mail, logger), logger)
	exports := service.NewExportService(complaintRepo, exportsStore, storage.NewLinkSigner(secret, cfg.Exports.SignedURLTTL), validate, logger, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	})

	a := &App{
		Config:        cfg,
		Logger:        logger,
		Gateway:       gw,
		Metrics:       metrics,
		Notifications: notifications,
		Exports:       exports,
		Auth: service.NewAuthService(userRepo, validate, logger, service.AuthConfig{
			Secret: cfg.JWT.Secret,
			Expiry: cfg.JWT.Expiration,
			Issuer: "complaint-desk-api",
		}),
		Users: service.NewUserService(userRepo, uploads, logger, service.UserConfig{
			MaxPictureBytes: cfg.Uploads.MaxFileSizeBytes,
			PictureTypes:    cfg.Uploads.ProfilePicMIMETypes,
		}),
		Complaints: service.NewComplaintService(complaintRepo, userRepo, notifications, uploads, validate, logger, service.ComplaintConfig{
			EnforceResolverRole:  cfg.Complaints.EnforceResolverRole,
			TitleMaxLength:       cfg.Complaints.TitleMaxLength,
			DescriptionMinLength: cfg.Complaints.DescriptionMinLength,
			DescriptionMaxLength: cfg.Complaints.DescriptionMaxLength,
			MaxAttachmentBytes:   cfg.Uploads.MaxFileSizeBytes,
			AdminDashboardURL:    cfg.Mail.AdminDashboardURL,
			ResolverDashboardURL: cfg.Mail.ResolverDashboardURL,
			StudentDashboardURL:  cfg.Mail.StudentDashboardURL,
		}).WithEvents(metrics),
		Stats:    service.NewStatsService(complaintRepo, userRepo, metrics, logger),
		Feedback: service.NewFeedbackService(feedbackRepo, complaintRepo, validate, logger),
		Support:  service.NewSupportService(supportRepo, validate, logger),
		Maintenance: service.NewMaintenanceService(complaintRepo, notifications, exports, metrics, logger, service.MaintenanceConfig{
			NotificationRetention: cfg.Maintenance.NotificationRetention,
			ExportTTL:             cfg.Exports.SignedURLTTL,
		}),
	}

	a.Queue = jobs.NewQueue("maintenance", jobs.Config{Workers: 1, Logger: logger})
	a.Maintenance.Register(a.Queue)
	return a, nil
}

// Handlers builds the HTTP layer on top of the services.
func (a *App) Handlers() *handler.Handlers {
	return &handler.Handlers{
		Auth:          handler.NewAuthHandler(a.Auth),
		Users:         handler.NewUserHandler(a.Users),
		Complaints:    handler.NewComplaintHandler(a.Complaints),
		Stats:         handler.NewStatsHandler(a.Stats),
		Notifications: handler.NewNotificationHandler(a.Notifications),
		Feedback:      handler.NewFeedbackHandler(a.Feedback, a.Support),
		Admin:         handler.NewAdminHandler(a.Maintenance, a.Exports),
		Health:        handler.NewHealthHandler(a.Gateway, a.Metrics),
	}
}

// RouterConfig derives route settings from configuration.
func (a *App) RouterConfig() handler.RouterConfig {
	dir := a.Config.Uploads.Dir
	if _, err := os.Stat(dir); err != nil {
		dir = ""
	}
	return handler.RouterConfig{
		APIPrefix:  a.Config.APIPrefix,
		Tokens:     a.Auth,
		UploadsDir: dir,
	}
}

// Close stops background work and releases the pool.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Stop()
	}
	if a.Gateway != nil {
		if err := a.Gateway.Close(); err != nil {
			a.Logger.Warn("close database", zap.Error(err))
		}
	}
}
