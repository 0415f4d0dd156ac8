package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/middleware"
	"github.com/noah-isme/complaint-desk-api/internal/models"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Complaints    *ComplaintHandler
	Stats         *StatsHandler
	Notifications *NotificationHandler
	Feedback      *FeedbackHandler
	Admin         *AdminHandler
	Health        *HealthHandler
}

// RouterConfig carries the values the route table depends on.
type RouterConfig struct {
	APIPrefix  string
	Tokens     middleware.TokenValidator
	UploadsDir string
}

// SetupRoutes mounts probes, static uploads and the API under cfg.APIPrefix.
func (h *Handlers) SetupRoutes(router *gin.Engine, cfg RouterConfig) {
	if h.Health != nil {
		router.GET("/health", h.Health.Health)
		router.GET("/ready", h.Health.Ready)
		router.GET("/metrics", h.Health.Prometheus)
	}
	if cfg.UploadsDir != "" {
		router.Static("/uploads", cfg.UploadsDir)
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	api := router.Group(prefix)
	auth := middleware.JWT(cfg.Tokens)

	admin := string(models.RoleAdmin)
	resolver := string(models.RoleResolver)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)

		profile := authGroup.Group("/profile/:id", auth, middleware.RBAC(admin, middleware.Self))
		profile.GET("", h.Users.Profile)
		profile.DELETE("", h.Users.Delete)
		profile.POST("/picture", h.Users.UploadPicture)
		profile.DELETE("/picture", h.Users.DeletePicture)
	}

	complaints := api.Group("/complaints")
	{
		// Public contact form and signed downloads carry no bearer token.
		complaints.POST("/support", h.Feedback.CreateSupport)
		complaints.GET("/export/download", h.Admin.Download)

		secured := complaints.Group("", auth)
		secured.POST("", middleware.RequireRoles(models.RoleStudent), h.Complaints.Submit)
		secured.POST("/submit", middleware.RequireRoles(models.RoleStudent), h.Complaints.Submit)
		secured.GET("", middleware.RBAC(admin, resolver), h.Complaints.List)
		secured.GET("/history", h.Complaints.History)
		secured.GET("/forwarded", middleware.RBAC(admin, resolver), h.Complaints.Forwarded)
		secured.GET("/resolvers", middleware.RBAC(admin, resolver), h.Users.Resolvers)

		secured.GET("/stats", middleware.RBAC(admin), h.Stats.Global)
		secured.GET("/stats/statuses", middleware.RBAC(admin), h.Stats.Statuses)
		secured.GET("/resolver/stats/:resolverId", middleware.RBAC(admin, middleware.Self), h.Stats.Resolver)
		secured.GET("/resolver/:resolverId", middleware.RBAC(admin, middleware.Self), h.Complaints.ByResolver)
		secured.GET("/resolver/:resolverId/active", middleware.RBAC(admin, middleware.Self), h.Complaints.ActiveByResolver)

		secured.GET("/notifications", h.Notifications.List)
		secured.PUT("/notifications/:id/read", h.Notifications.MarkRead)

		secured.GET("/feedbacks", middleware.RBAC(admin), h.Feedback.All)
		secured.GET("/support", h.Feedback.ListSupport)

		secured.POST("/export", middleware.RBAC(admin), h.Admin.Export)
		secured.POST("/maintenance/:task", middleware.RBAC(admin), h.Admin.RunMaintenance)

		secured.GET("/:id", h.Complaints.Get)
		secured.DELETE("/:id", middleware.RBAC(admin), h.Complaints.Delete)
		secured.PUT("/:id/assign", middleware.RBAC(admin, resolver), h.Complaints.Assign)
		secured.POST("/:id/comment", h.Complaints.Comment)
		secured.PUT("/:id/resolve", middleware.RBAC(admin, resolver), h.Complaints.Resolve)
		secured.PUT("/:id/status", middleware.RBAC(admin, resolver), h.Complaints.UpdateStatus)
		secured.POST("/:id/feedback", middleware.RequireRoles(models.RoleStudent), h.Feedback.Submit)
		secured.GET("/:id/feedback", h.Feedback.ForComplaint)
	}
}
