package cta

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenlive/backend/internal/realtime"
	"github.com/lumenlive/backend/pkg/response"
)

// Handler handles CTA visibility HTTP endpoints.
type Handler struct {
	svc *Service
	hub *realtime.Hub
}

// NewHandler creates a CTA handler.
func NewHandler(svc *Service, hub *realtime.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

func parseParams(c *gin.Context) (uuid.UUID, int, bool) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return uuid.Nil, 0, false
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.BadRequest(c, "invalid cta index")
		return uuid.Nil, 0, false
	}
	return webinarID, index, true
}

// Activate handles POST /webinars/:id/cta/:index/activate (admin only).
func (h *Handler) Activate(c *gin.Context) {
	webinarID, index, ok := parseParams(c)
	if !ok {
		return
	}
	if err := h.svc.Activate(c.Request.Context(), webinarID, index); err != nil {
		response.FromError(c, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToWebinarAndPublish(webinarID, realtime.EventCTAActivated, gin.H{"index": index})
	}
	response.OK(c, gin.H{"index": index, "active": true})
}

// Deactivate handles POST /webinars/:id/cta/:index/deactivate (admin only).
func (h *Handler) Deactivate(c *gin.Context) {
	webinarID, index, ok := parseParams(c)
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), webinarID, index); err != nil {
		response.FromError(c, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToWebinarAndPublish(webinarID, realtime.EventCTADeactivated, gin.H{"index": index})
	}
	response.OK(c, gin.H{"index": index, "active": false})
}

// GetActive handles GET /webinars/:id/cta.
func (h *Handler) GetActive(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	indices, err := h.svc.GetActive(c.Request.Context(), webinarID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"active_cta_indices": indices})
}
