package reminders

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/pkg/response"
)

// WebinarGetter resolves webinars for the manual dispatch path.
type WebinarGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
}

// Handler handles admin reminder endpoints.
type Handler struct {
	sweeper  *Sweeper
	webinars WebinarGetter
	logger   *zap.Logger
}

// NewHandler creates a reminders handler.
func NewHandler(sweeper *Sweeper, webinars WebinarGetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sweeper: sweeper, webinars: webinars, logger: logger}
}

// TestReminder handles POST /webinars/:id/test-reminder (admin only). It runs
// the normal dispatch path but bypasses the reminder_sent claim, so the
// scheduled reminder still fires later.
func (h *Handler) TestReminder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	w, err := h.webinars.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	sent, failed := h.sweeper.Dispatch(c.Request.Context(), w, models.EmailTypeTestReminder)
	response.OK(c, gin.H{"sent": sent, "failed": failed})
}
