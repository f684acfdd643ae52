package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusevents-backend/internal/model"
)

// ListEvents handles GET /api/events with optional keyword, start_date and
// end_date filters.
func (h *Handler) ListEvents(c *gin.Context) {
	var q model.EventSearch
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	events, err := h.events.Search(c.Request.Context(), q)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) GetEvent(c *gin.Context) {
	ev, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var body model.EventInput
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	// RequireAuth has run, so the identity is present.
	ev, err := h.events.Create(c.Request.Context(), *identityFrom(c), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *Handler) UpdateEvent(c *gin.Context) {
	var body model.EventInput
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	ev, err := h.events.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event removed"})
}

func (h *Handler) EventRegistrations(c *gin.Context) {
	regs, err := h.events.Registrations(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, regs)
}
