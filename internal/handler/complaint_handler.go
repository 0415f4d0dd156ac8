package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type complaintService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, req dto.SubmitComplaintRequest, file *dto.Upload) (*models.Complaint, error)
	List(ctx context.Context, actor *models.JWTClaims, rawStatus string) ([]models.Complaint, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Complaint, error)
	Assign(ctx context.Context, actor *models.JWTClaims, id string, req dto.AssignComplaintRequest) (*models.Complaint, error)
	Comment(ctx context.Context, actor *models.JWTClaims, id string, req dto.CommentRequest) (*models.Complaint, error)
	Resolve(ctx context.Context, actor *models.JWTClaims, id string, req dto.ResolveComplaintRequest) (*models.Complaint, error)
	UpdateStatus(ctx context.Context, actor *models.JWTClaims, id string, req dto.UpdateStatusRequest) (*models.Complaint, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	History(ctx context.Context, actor *models.JWTClaims) ([]models.Complaint, error)
	ListByResolver(ctx context.Context, actor *models.JWTClaims, resolverID string, activeOnly bool) ([]models.Complaint, error)
	ListForwarded(ctx context.Context, actor *models.JWTClaims, resolverID string) ([]models.Complaint, error)
}

// ComplaintHandler exposes the complaint lifecycle.
type ComplaintHandler struct {
	service complaintService
}

// NewComplaintHandler constructs the handler.
func NewComplaintHandler(svc complaintService) *ComplaintHandler {
	return &ComplaintHandler{service: svc}
}

// Submit godoc
// @Summary Submit a complaint
// @Description Accepts multipart/form-data (with optional file) or JSON.
// @Tags Complaints
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Description (20-1000 chars)"
// @Param branch formData string true "Branch"
// @Param category formData string true "Category"
// @Param priority formData string true "Priority"
// @Param inchargeName formData string false "Person in charge"
// @Param file formData file false "Attachment"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /complaints/submit [post]
func (h *ComplaintHandler) Submit(c *gin.Context) {
	var req dto.SubmitComplaintRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid complaint payload"))
		return
	}
	upload, closeUpload, err := formUpload(c, "file")
	defer closeUpload()
	if err != nil {
		response.Error(c, err)
		return
	}
	complaint, err := h.service.Submit(c.Request.Context(), claimsFromContext(c), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Complaint submitted successfully", "complaint", complaint)
}

// List godoc
// @Summary List complaints
// @Tags Complaints
// @Produce json
// @Param status query string false "Status filter (typo tolerant)"
// @Success 200 {object} map[string]interface{}
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	complaints, err := h.service.List(c.Request.Context(), claimsFromContext(c), c.Query("status"))
	h.respondList(c, complaints, err)
}

// Get godoc
// @Summary Get a complaint
// @Tags Complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	complaint, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Complaint fetched", "complaint", complaint)
}

// Assign godoc
// @Summary Forward a complaint to a resolver
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.AssignComplaintRequest true "Resolver"
// @Success 200 {object} map[string]interface{}
// @Router /complaints/{id}/assign [put]
func (h *ComplaintHandler) Assign(c *gin.Context) {
	var req dto.AssignComplaintRequest
	if err := bindJSON(c, &req, "resolverId is required"); err != nil {
		response.Error(c, err)
		return
	}
	complaint, err := h.service.Assign(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Complaint assigned successfully", "complaint", complaint)
}

// Comment godoc
// @Summary Comment on a complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 200 {object} map[string]interface{}
// @Router /complaints/{id}/comment [post]
func (h *ComplaintHandler) Comment(c *gin.Context) {
	var req dto.CommentRequest
	if err := bindJSON(c, &req, "comment is required"); err != nil {
		response.Error(c, err)
		return
	}
	complaint, err := h.service.Comment(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Comment added successfully", "complaint", complaint)
}

// Resolve godoc
// @Summary Resolve a complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.ResolveComplaintRequest true "Resolution"
// @Success 200 {object} map[string]interface{}
// @Router /complaints/{id}/resolve [put]
func (h *ComplaintHandler) Resolve(c *gin.Context) {
	var req dto.ResolveComplaintRequest
	if err := bindJSON(c, &req, "resolution comment is required"); err != nil {
		response.Error(c, err)
		return
	}
	complaint, err := h.service.Resolve(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Complaint resolved successfully", "complaint", complaint)
}

// UpdateStatus godoc
// @Summary Overwrite a complaint status
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.UpdateStatusRequest true "Status"
// @Success 200 {object} map[string]interface{}
// @Router /complaints/{id}/status [put]
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := bindJSON(c, &req, "invalid status value"); err != nil {
		response.Error(c, err)
		return
	}
	complaint, err := h.service.UpdateStatus(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Status updated", "complaint", complaint)
}

// Delete godoc
// @Summary Delete a complaint
// @Tags Complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} map[string]interface{}
// @Router /complaints/{id} [delete]
func (h *ComplaintHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Complaint deleted successfully")
}

// History godoc
// @Summary Complaints the caller filed or handles
// @Tags Complaints
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /complaints/history [get]
func (h *ComplaintHandler) History(c *gin.Context) {
	complaints, err := h.service.History(c.Request.Context(), claimsFromContext(c))
	h.respondList(c, complaints, err)
}

// ByResolver godoc
// @Summary Complaints assigned to a resolver
// @Tags Complaints
// @Produce json
// @Param resolverId path string true "Resolver ID"
// @Success 200 {object} map[string]interface{}
// @Router /complaints/resolver/{resolverId} [get]
func (h *ComplaintHandler) ByResolver(c *gin.Context) {
	complaints, err := h.service.ListByResolver(c.Request.Context(), claimsFromContext(c), c.Param("resolverId"), false)
	h.respondList(c, complaints, err)
}

// ActiveByResolver godoc
// @Summary Forwarded or in-progress complaints of a resolver
// @Tags Complaints
// @Produce json
// @Param resolverId path string true "Resolver ID"
// @Success 200 {object} map[string]interface{}
// @Router /complaints/resolver/{resolverId}/active [get]
func (h *ComplaintHandler) ActiveByResolver(c *gin.Context) {
	complaints, err := h.service.ListByResolver(c.Request.Context(), claimsFromContext(c), c.Param("resolverId"), true)
	h.respondList(c, complaints, err)
}

// Forwarded godoc
// @Summary Forwarded complaints
// @Tags Complaints
// @Produce json
// @Param resolverId query string false "Resolver ID (admins only)"
// @Success 200 {object} map[string]interface{}
// @Router /complaints/forwarded [get]
func (h *ComplaintHandler) Forwarded(c *gin.Context) {
	complaints, err := h.service.ListForwarded(c.Request.Context(), claimsFromContext(c), strings.TrimSpace(c.Query("resolverId")))
	h.respondList(c, complaints, err)
}

func (h *ComplaintHandler) respondList(c *gin.Context, complaints []models.Complaint, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}
	response.OK(c, "Complaints fetched", "complaints", complaints)
}
