package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/export"
	"github.com/noah-isme/complaint-desk-api/pkg/storage"
)

const exportPrefix = "exports"

type complaintLister interface {
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, error)
}

type exportStore interface {
	Put(key string, data []byte) error
	Open(key string) (*os.File, error)
	Sweep(prefix string, ttl time.Duration) ([]string, error)
}

type linkSigner interface {
	Sign(key string) (string, time.Time, error)
	Verify(token string) (string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportDownload is an opened report ready to stream.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ExportService renders complaint reports and hands out signed download links.
type ExportService struct {
	complaints complaintLister
	store      exportStore
	signer     linkSigner
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ExportConfig
}

var exportHeaders = []string{"ID", "Title", "Branch", "Category", "Priority", "Status", "Created At"}

// NewExportService constructs an ExportService.
func NewExportService(complaints complaintLister, store exportStore, signer linkSigner, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}
	return &ExportService{complaints: complaints, store: store, signer: signer, validator: validate, logger: logger, cfg: cfg}
}

// Generate renders every complaint matching req.Status and stores the file.
func (s *ExportService) Generate(ctx context.Context, actor *models.JWTClaims, req dto.ExportRequest) (*dto.ExportResult, error) {
	if !hasRole(actor, models.RoleAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can export complaints")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv, pdf or xlsx")
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv, pdf or xlsx")
	}

	filter := models.ComplaintFilter{}
	title := "Complaint Report"
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := models.NormalizeStatus(raw)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Statuses = []models.ComplaintStatus{status}
		title = fmt.Sprintf("Complaint Report (%s)", status)
	}

	complaints, err := s.complaints.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load complaints")
	}

	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, appErrors.Internal(err, "renderer unavailable")
	}
	payload, err := renderer.Render(complaintDataset(title, complaints))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render report")
	}

	key := storage.NewKey(exportPrefix, "report."+string(format))
	if err := s.store.Put(key, payload); err != nil {
		return nil, appErrors.Internal(err, "failed to store report")
	}
	token, expiresAt, err := s.signer.Sign(key)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign download link")
	}

	s.logger.Info("complaint report exported",
		zap.String("format", string(format)),
		zap.Int("rows", len(complaints)),
		zap.String("actor_id", actor.UserID))

	return &dto.ExportResult{
		Format:    string(format),
		Rows:      len(complaints),
		URL:       fmt.Sprintf("%s/complaints/export/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open verifies a download token and opens the referenced report.
func (s *ExportService) Open(token string) (*ExportDownload, error) {
	key, err := s.signer.Verify(strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, storage.ErrLinkExpired) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "download link expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download link")
	}
	if !strings.HasPrefix(key, exportPrefix+"/") {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}
	file, err := s.store.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Internal(err, "failed to open report")
	}
	ext := strings.TrimPrefix(path.Ext(key), ".")
	format, err := export.ParseFormat(ext)
	contentType := "application/octet-stream"
	if err == nil {
		contentType = format.ContentType()
	}
	return &ExportDownload{
		File:        file,
		Filename:    "complaints-" + time.Now().UTC().Format("20060102") + path.Ext(key),
		ContentType: contentType,
	}, nil
}

// Cleanup removes reports older than the configured TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.store.Sweep(exportPrefix, ttl)
}

func complaintDataset(title string, complaints []models.Complaint) export.Dataset {
	rows := make([]map[string]string, 0, len(complaints))
	for _, c := range complaints {
		status := string(c.Status)
		if canonical, ok := models.NormalizeStatus(status); ok {
			status = string(canonical)
		}
		rows = append(rows, map[string]string{
			"ID":         c.ID,
			"Title":      c.Title,
			"Branch":     c.Branch,
			"Category":   c.Category,
			"Priority":   c.Priority,
			"Status":     status,
			"Created At": c.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Title: title, Headers: exportHeaders, Rows: rows}
}
