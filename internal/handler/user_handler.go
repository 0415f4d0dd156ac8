package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/dto"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type userService interface {
	Get(ctx context.Context, id string) (*models.User, error)
	ListResolvers(ctx context.Context) ([]models.UserContact, error)
	UpdatePicture(ctx context.Context, id string, upload dto.Upload) (*models.User, error)
	RemovePicture(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// UserHandler serves profile endpoints and the resolver directory.
type UserHandler struct {
	service userService
}

// NewUserHandler creates a new handler.
func NewUserHandler(svc userService) *UserHandler {
	return &UserHandler{service: svc}
}

// Profile godoc
// @Summary Get a user profile
// @Tags Profile
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} response.ErrorBody
// @Router /auth/profile/{id} [get]
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Profile fetched", "user", user)
}

// UploadPicture godoc
// @Summary Replace the profile picture
// @Tags Profile
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "User ID"
// @Param profilePic formData file true "Image file"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Router /auth/profile/{id}/picture [post]
func (h *UserHandler) UploadPicture(c *gin.Context) {
	upload, closeUpload, err := formUpload(c, "profilePic")
	defer closeUpload()
	if err != nil {
		response.Error(c, err)
		return
	}
	if upload == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no file uploaded"))
		return
	}
	user, err := h.service.UpdatePicture(c.Request.Context(), c.Param("id"), *upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Fields(c, http.StatusOK, "Profile picture updated", gin.H{"profilePic": user.ProfilePic, "user": user})
}

// DeletePicture godoc
// @Summary Remove the profile picture
// @Tags Profile
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /auth/profile/{id}/picture [delete]
func (h *UserHandler) DeletePicture(c *gin.Context) {
	if err := h.service.RemovePicture(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "Profile picture deleted")
}

// Delete godoc
// @Summary Delete an account
// @Tags Profile
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Router /auth/profile/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, "User deleted")
}

// Resolvers godoc
// @Summary List resolvers for assignment
// @Tags Complaints
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /complaints/resolvers [get]
func (h *UserHandler) Resolvers(c *gin.Context) {
	resolvers, err := h.service.ListResolvers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if resolvers == nil {
		resolvers = []models.UserContact{}
	}
	response.OK(c, "Resolvers fetched", "resolvers", resolvers)
}
