package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusevents-backend/internal/model"
)

// Register handles POST /api/events/:id/register for guests and users.
func (h *Handler) Register(c *gin.Context) {
	var body model.RegisterRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	reg, err := h.registrations.Register(c.Request.Context(), c.Param("id"), body, identityFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reg)
}

// Unregister handles DELETE /api/events/:id/unregister. Guests identify
// their entry with ?email=.
func (h *Handler) Unregister(c *gin.Context) {
	err := h.registrations.Unregister(c.Request.Context(), c.Param("id"), identityFrom(c), c.Query("email"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Registration cancelled"})
}

// MyEvents handles GET /api/events/myevents.
func (h *Handler) MyEvents(c *gin.Context) {
	events, err := h.registrations.MyEvents(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
