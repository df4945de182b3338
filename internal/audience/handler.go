package audience

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlive/backend/pkg/response"
)

// Handler handles admin audience-sync endpoints.
type Handler struct {
	reconciler *Reconciler
	logger     *zap.Logger
}

// NewHandler creates an audience handler.
func NewHandler(reconciler *Reconciler, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reconciler: reconciler, logger: logger}
}

// Sync handles POST /webinars/:id/sync-audience (admin only). Runs the
// reconciliation inline and reports what was applied.
func (h *Handler) Sync(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	result, err := h.reconciler.Reconcile(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("audience sync failed", zap.String("webinar_id", id.String()), zap.Error(err))
		response.FromError(c, err)
		return
	}
	response.OK(c, result)
}
