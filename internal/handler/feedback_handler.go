package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type feedbackService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, complaintID string, req dto.FeedbackRequest) (*models.Feedback, error)
	ForComplaint(ctx context.Context, actor *models.JWTClaims, complaintID string) ([]models.Feedback, error)
	All(ctx context.Context, actor *models.JWTClaims) ([]models.Feedback, error)
}

type supportService interface {
	Create(ctx context.Context, req dto.SupportRequest) (*models.SupportRequest, error)
	List(ctx context.Context, actor *models.JWTClaims) ([]models.SupportRequest, error)
}

// FeedbackHandler serves ratings and the public support form.
type FeedbackHandler struct {
	feedback feedbackService
	support  supportService
}

func NewFeedbackHandler(feedback feedbackService, support supportService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, support: support}
}

// Submit godoc
// @Summary Rate a resolved complaint
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body dto.FeedbackRequest true "Rating 1-5"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /complaints/{id}/feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req dto.FeedbackRequest
	if err := bindJSON(c, &req, "rating must be an integer between 1 and 5"); err != nil {
		response.Error(c, err)
		return
	}
	fb, err := h.feedback.Submit(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Feedback submitted", "feedback", fb)
}

// ForComplaint godoc
// @Summary Feedback left on a complaint
// @Tags Feedback
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} map[string]interface{}
// @Router /complaints/{id}/feedback [get]
func (h *FeedbackHandler) ForComplaint(c *gin.Context) {
	items, err := h.feedback.ForComplaint(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Feedback fetched", "feedback", items)
}

// All godoc
// @Summary Every feedback with complaint title and student name
// @Tags Feedback
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /complaints/feedbacks [get]
func (h *FeedbackHandler) All(c *gin.Context) {
	items, err := h.feedback.All(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Feedback fetched", "feedbacks", items)
}

// CreateSupport godoc
// @Summary Submit a support request
// @Tags Support
// @Accept json
// @Produce json
// @Param payload body dto.SupportRequest true "Contact form"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /complaints/support [post]
func (h *FeedbackHandler) CreateSupport(c *gin.Context) {
	var req dto.SupportRequest
	if err := bindJSON(c, &req, "all fields are required"); err != nil {
		response.Error(c, err)
		return
	}
	rec, err := h.support.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Support request submitted", "supportRequest", rec)
}

// ListSupport godoc
// @Summary List support requests
// @Tags Support
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} response.ErrorBody
// @Router /complaints/support [get]
func (h *FeedbackHandler) ListSupport(c *gin.Context) {
	items, err := h.support.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Support requests fetched", "supportRequests", items)
}
