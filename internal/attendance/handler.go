package attendance

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlive/backend/internal/middleware"
	"github.com/lumenlive/backend/pkg/response"
)

// RegisterRequest is the optional body for POST /webinars/:id/register.
type RegisterRequest struct {
	FullName string `json:"full_name"`
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func callerIdentity(c *gin.Context) Identity {
	id := Identity{
		UserID: c.MustGet(middleware.ContextUserID).(uuid.UUID),
	}
	if email, ok := c.Get(middleware.ContextUserEmail); ok {
		id.Email, _ = email.(string)
	}
	return id
}

// Register handles POST /webinars/:id/register.
func (h *Handler) Register(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	who := callerIdentity(c)
	var req RegisterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	who.FullName = req.FullName

	rec, err := h.svc.Register(c.Request.Context(), webinarID, who)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, rec)
}

// Unregister handles DELETE /webinars/:id/register.
func (h *Handler) Unregister(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	who := callerIdentity(c)
	if err := h.svc.Unregister(c.Request.Context(), webinarID, who.UserID); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"unregistered": true})
}

// Attend handles POST /webinars/:id/attend.
func (h *Handler) Attend(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	who := callerIdentity(c)
	if err := h.svc.MarkAttended(c.Request.Context(), webinarID, who); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"status": "attended"})
}

// Watch handles POST /webinars/:id/watch.
func (h *Handler) Watch(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	who := callerIdentity(c)
	if err := h.svc.MarkWatched(c.Request.Context(), webinarID, who); err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, gin.H{"status": "recorded"})
}

// ListAttendees handles GET /webinars/:id/attendees (admin only).
func (h *Handler) ListAttendees(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	list, err := h.svc.Roster(c.Request.Context(), webinarID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.OK(c, list)
}
