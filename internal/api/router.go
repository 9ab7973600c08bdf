package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"carretometro-backend/config"
	"carretometro-backend/internal/mw"
)

// NewRouter creates and configures the gin engine.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(h.Log))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	// Credentials endpoints get one attempt every two seconds per IP.
	loginLimiter := mw.RateLimiter(rate.Every(2*time.Second), 3)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	r.GET("/healthz", h.Healthz)
	if h.Collectors != nil {
		r.GET("/metrics", gin.WrapH(h.Collectors.Handler()))
	}

	api := r.Group("/api")
	api.Use(rateLimiter)

	api.GET("/reference", caching, h.GetReference)
	api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	api.GET("/subscriptions", h.GetSubscription)
	api.PUT("/subscriptions", h.PutSubscription)
	api.DELETE("/subscriptions", h.DeleteSubscription)

	public := api.Group("/auth", loginLimiter)
	{
		public.POST("/login", h.Login)
		public.POST("/password-reset", h.RequestPasswordReset)
		public.POST("/access-requests", h.RequestAccess)
	}

	authed := api.Group("", mw.AuthRequired(h.Auth))
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/auth/me", h.Me)

	authed.GET("/visits", h.ListVisits)
	authed.GET("/visits/export", h.ExportVisits)
	authed.GET("/visits/:id", h.GetVisit)
	authed.GET("/fleets", h.SearchFleets)
	authed.GET("/fleets/:id/stats", h.FleetStats)
	authed.GET("/fleets/:id/visits", h.FleetHistory)
	authed.GET("/metrics", h.GetMetrics)
	authed.GET("/monitor", h.GetMonitor)
	authed.GET("/monitor/ws", h.MonitorStream)
	authed.GET("/audit", h.ListAudit)
	authed.POST("/audit/navigation", h.RecordNavigation)

	ai := authed.Group("/ai")
	{
		ai.POST("/report", h.GenerateReport)
		ai.POST("/fleet-chat", h.FleetChat)
		ai.POST("/fleet-analysis", h.FleetAnalysis)
		ai.POST("/suggestions", h.Suggestions)
		ai.POST("/diagnose", h.Diagnose)
		ai.POST("/assistant", h.Ask)
	}

	editor := authed.Group("", mw.EditorRequired())
	{
		editor.POST("/visits", h.CreateVisit)
		editor.PATCH("/visits/:id", h.UpdateVisit)
		editor.POST("/visits/:id/status", h.ChangeStatus)
		editor.DELETE("/visits/:id", h.DeleteVisit)
		editor.POST("/fleets", h.CreateFleet)
		editor.PUT("/fleets/:id", h.UpdateFleet)
		editor.DELETE("/fleets/:id", h.DeleteFleet)
	}

	admin := authed.Group("", mw.AdminRequired())
	{
		admin.DELETE("/audit", h.ClearAudit)
		admin.GET("/users", h.ListUsers)
		admin.POST("/users", h.CreateUser)
		admin.PATCH("/users/:name", h.UpdateUser)
		admin.DELETE("/users/:name", h.DeleteUser)
		admin.GET("/password-resets", h.ListPasswordResets)
		admin.POST("/password-resets/:name/approve", h.ApprovePasswordReset)
		admin.POST("/password-resets/:name/deny", h.DenyPasswordReset)
		admin.GET("/access-requests", h.ListAccessRequests)
		admin.POST("/access-requests/:id/approve", h.ApproveAccessRequest)
		admin.POST("/access-requests/:id/deny", h.DenyAccessRequest)
	}

	return r
}
