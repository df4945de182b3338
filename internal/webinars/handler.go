package webinars

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumenlive/backend/internal/middleware"
	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/internal/realtime"
	"github.com/lumenlive/backend/pkg/apperr"
	"github.com/lumenlive/backend/pkg/response"
)

// CreateRequest is the body for POST /webinars.
type CreateRequest struct {
	Slug        string       `json:"slug" binding:"required"`
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description"`
	ScheduledAt string       `json:"scheduled_at" binding:"required"`
	Capacity    *int         `json:"capacity"`
	CTAs        []models.CTA `json:"ctas"`
}

// StatusRequest is the body for PATCH /webinars/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CTARequest is the body for POST /webinars/:id/ctas.
type CTARequest struct {
	Label string `json:"label" binding:"required"`
	Link  string `json:"link" binding:"required"`
}

// Store is the persistence surface the handler needs. *Repository satisfies it.
type Store interface {
	Create(ctx context.Context, w *models.Webinar) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	GetBySlug(ctx context.Context, slug string) (*models.Webinar, error)
	List(ctx context.Context) ([]models.Webinar, error)
	AdvanceStatus(ctx context.Context, id uuid.UUID, next models.WebinarStatus) error
	AppendCTA(ctx context.Context, id uuid.UUID, cta models.CTA) (int, error)
}

// Handler handles webinar HTTP endpoints.
type Handler struct {
	repo Store
	hub  *realtime.Hub
}

// NewHandler creates a webinar handler.
func NewHandler(repo Store, hub *realtime.Hub) *Handler {
	return &Handler{repo: repo, hub: hub}
}

// Create handles POST /webinars (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		response.BadRequest(c, "invalid scheduled_at")
		return
	}
	capacity := models.DefaultCapacity
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			response.BadRequest(c, "capacity must be positive")
			return
		}
		capacity = *req.Capacity
	}
	for _, cta := range req.CTAs {
		if err := validateCTA(cta); err != nil {
			response.FromError(c, err)
			return
		}
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	w := &models.Webinar{
		Slug:        strings.ToLower(strings.TrimSpace(req.Slug)),
		Title:       req.Title,
		Description: req.Description,
		ScheduledAt: scheduledAt.UTC(),
		Status:      models.StatusScheduled,
		Capacity:    capacity,
		CTAs:        req.CTAs,
		CreatedBy:   userID,
	}
	if err := h.repo.Create(c.Request.Context(), w); err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, w)
}

// GetByID handles GET /webinars/:id. The parameter may be a UUID or a slug.
func (h *Handler) GetByID(c *gin.Context) {
	ref := c.Param("id")
	var w *models.Webinar
	var err error
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		w, err = h.repo.GetByID(c.Request.Context(), id)
	} else {
		w, err = h.repo.GetBySlug(c.Request.Context(), ref)
	}
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, w)
}

// List handles GET /webinars.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list webinars")
		return
	}
	response.OK(c, list)
}

// AdvanceStatus handles PATCH /webinars/:id/status (admin only). Transitions
// are forward only; moving backwards is a validation error.
func (h *Handler) AdvanceStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status required")
		return
	}
	next := models.WebinarStatus(req.Status)
	if !next.Valid() {
		response.BadRequest(c, "unknown status: "+req.Status)
		return
	}
	if err := h.repo.AdvanceStatus(c.Request.Context(), id, next); err != nil {
		response.FromError(c, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastToWebinarAndPublish(id, realtime.EventStatusChanged, gin.H{"status": next})
	}
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, w)
}

// AppendCTA handles POST /webinars/:id/ctas (admin only).
func (h *Handler) AppendCTA(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req CTARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "label and link required")
		return
	}
	cta := models.CTA{Label: req.Label, Link: req.Link}
	if err := validateCTA(cta); err != nil {
		response.FromError(c, err)
		return
	}
	index, err := h.repo.AppendCTA(c.Request.Context(), id, cta)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, gin.H{"index": index, "label": cta.Label, "link": cta.Link})
}

func validateCTA(cta models.CTA) error {
	if strings.TrimSpace(cta.Label) == "" {
		return apperr.Validation("cta label must not be empty")
	}
	u, err := url.Parse(cta.Link)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return apperr.Validation("cta link must be an absolute URL")
	}
	return nil
}
