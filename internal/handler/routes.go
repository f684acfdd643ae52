package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router builds the gin engine. metrics may be nil.
func Router(h *Handler, metrics http.Handler, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(logger), CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/api")

	// Auth
	api.POST("/auth/register", h.Signup)
	api.POST("/auth/login", h.Login)
	api.GET("/auth/me", h.RequireAuth(), h.Me)

	events := api.Group("/events")
	{
		events.GET("", h.ListEvents)
		events.GET("/myevents", h.RequireAuth(), h.MyEvents)
		events.GET("/:id", h.GetEvent)

		// Guests and users share these; a bad token degrades to guest.
		events.POST("/:id/register", h.OptionalAuth(), h.Register)
		events.DELETE("/:id/unregister", h.OptionalAuth(), h.Unregister)

		admin := events.Group("", h.RequireAuth(), h.RequireAdmin())
		admin.POST("", h.CreateEvent)
		admin.PUT("/:id", h.UpdateEvent)
		admin.DELETE("/:id", h.DeleteEvent)
		admin.GET("/:id/registrations", h.EventRegistrations)
	}

	return r
}
