package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"outpass-backend/config"
	"outpass-backend/internal/model"
	"outpass-backend/internal/mw"
	"outpass-backend/internal/obs"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, srv config.ServerConfig) *gin.Engine {
	obs.Init()

	r := gin.Default()
	r.Use(mw.RequestID(), obs.Instrument())

	r.GET("/metrics", gin.WrapH(obs.Handler()))
	r.GET("/healthz", h.Healthz)
	r.GET("/api/vapid_public_key", h.GetVAPIDPublicKey)

	rateLimiter := mw.RateLimiter(rate.Limit(srv.RateLimitPerSec), srv.RateLimitBurst)

	caching := mw.NewResponseCache(time.Duration(srv.CacheTTLSeconds) * time.Second).Handler()

	approvers := mw.RequireRole(model.RoleMentor, model.RoleHOD, model.RoleWarden)
	students := mw.RequireRole(model.RoleStudent)
	gateStaff := mw.RequireRole(model.RoleSecurity)
	gateViewers := mw.RequireRole(model.RoleSecurity, model.RoleWarden)

	api := r.Group("/api")
	api.Use(mw.Actor(), rateLimiter)
	{
		passes := api.Group("/passes")
		passes.POST("", students, h.SubmitPass)
		passes.GET("/mine", students, h.ListMine)
		passes.GET("/active", students, h.ActivePass)
		passes.GET("/pending", approvers, h.ListPending)
		passes.GET("/history", approvers, h.History)
		passes.GET("/:id", h.GetPass)
		passes.POST("/:id/decision", approvers, h.Decide)
		passes.GET("/:id/token", students, h.PassToken)
		passes.GET("/:id/events", h.PassEvents)

		g := api.Group("/gate")
		g.POST("/scan", gateStaff, h.Scan)
		g.POST("/passes/:id/exit", gateStaff, h.RecordExit)
		g.POST("/passes/:id/entry", gateStaff, h.RecordEntry)
		g.GET("/log", gateViewers, h.GateLog)
		g.GET("/stats", gateViewers, h.GateStats)

		api.GET("/reports/summary", approvers, caching, h.ReportSummary)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}
