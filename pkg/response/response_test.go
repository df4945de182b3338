package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlive/backend/pkg/apperr"
)

func recordFromError(t *testing.T, err error) (int, Body) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	FromError(c, err)

	var body Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestFromError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", apperr.NotFound("webinar"), http.StatusNotFound},
		{"conflict", apperr.Conflict("already registered"), http.StatusConflict},
		{"capacity", apperr.CapacityExceeded("webinar is full"), http.StatusBadRequest},
		{"validation", apperr.Validation("bad slug"), http.StatusBadRequest},
		{"external", apperr.External("audience list: status 503"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := recordFromError(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestFromError_ExternalKeepsMessage(t *testing.T) {
	status, body := recordFromError(t, apperr.External("audience list page 3: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body.Error, "audience list page 3")
}

func TestFromError_UnknownErrorHidesDetail(t *testing.T) {
	status, body := recordFromError(t, errors.New("pq: deadlock detected"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body.Error)
}
