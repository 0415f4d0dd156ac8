package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

type statsService interface {
	Global(ctx context.Context) (*models.ComplaintStats, error)
	ForResolver(ctx context.Context, actor *models.JWTClaims, resolverID string) (*models.ComplaintStats, error)
	Breakdown(ctx context.Context) ([]models.StatusBreakdown, error)
}

// StatsHandler serves complaint counters.
type StatsHandler struct {
	service statsService
}

func NewStatsHandler(svc statsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Global godoc
// @Summary Complaint counts by status
// @Tags Stats
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /complaints/stats [get]
func (h *StatsHandler) Global(c *gin.Context) {
	stats, err := h.service.Global(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Complaint stats fetched", "stats", stats)
}

// Resolver godoc
// @Summary Complaint counts for one resolver
// @Tags Stats
// @Produce json
// @Param resolverId path string true "Resolver ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} response.ErrorBody
// @Router /complaints/resolver/stats/{resolverId} [get]
func (h *StatsHandler) Resolver(c *gin.Context) {
	stats, err := h.service.ForResolver(c.Request.Context(), claimsFromContext(c), c.Param("resolverId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Resolver stats fetched", "stats", stats)
}

// Statuses godoc
// @Summary Raw status values and their classification
// @Tags Stats
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /complaints/stats/statuses [get]
func (h *StatsHandler) Statuses(c *gin.Context) {
	rows, err := h.service.Breakdown(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Status breakdown fetched", "statuses", rows)
}
