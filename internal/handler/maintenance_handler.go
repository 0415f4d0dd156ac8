package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type maintenanceService interface {
	Run(ctx context.Context, actor *models.JWTClaims, task string) (interface{}, error)
}

type exportService interface {
	Generate(ctx context.Context, actor *models.JWTClaims, req dto.ExportRequest) (*dto.ExportResult, error)
	Open(token string) (*service.ExportDownload, error)
}

// AdminHandler groups admin-only operational endpoints: maintenance tasks and report export.
type AdminHandler struct {
	maintenance maintenanceService
	exports     exportService
}

func NewAdminHandler(maintenance maintenanceService, exports exportService) *AdminHandler {
	return &AdminHandler{maintenance: maintenance, exports: exports}
}

// RunMaintenance godoc
// @Summary Run a maintenance task synchronously
// @Tags Maintenance
// @Produce json
// @Param task path string true "normalize or retention"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} response.ErrorBody
// @Router /complaints/maintenance/{task} [post]
func (h *AdminHandler) RunMaintenance(c *gin.Context) {
	report, err := h.maintenance.Run(c.Request.Context(), claimsFromContext(c), c.Param("task"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Maintenance task completed", "report", report)
}

// Export godoc
// @Summary Export complaints as csv, pdf or xlsx
// @Tags Export
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export options"
// @Success 201 {object} map[string]interface{}
// @Router /complaints/export [post]
func (h *AdminHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := bindJSON(c, &req, "invalid export payload"); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exports.Generate(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Report generated", "export", result)
}

// Download godoc
// @Summary Download a generated report
// @Tags Export
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.ErrorBody
// @Router /complaints/export/download [get]
func (h *AdminHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	var size int64 = -1
	if info, err := download.File.Stat(); err == nil {
		size = info.Size()
	}
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, size, download.ContentType, io.Reader(download.File), map[string]string{
		"Content-Disposition": `attachment; filename="` + download.Filename + `"`,
	})
}
