package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swimteam/backend/internal/interfaces/http/dto"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// SessionCounter reports how many sessions are live
type SessionCounter interface {
	Len() int
}

// HealthHandler reports process and dependency health
type HealthHandler struct {
	BaseHandler
	startTime time.Time
	checks    map[string]HealthCheck
	sessions  SessionCounter
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(sessions SessionCounter, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		checks:    checks,
		sessions:  sessions,
	}
}

// Health godoc
//
//	@Summary	Health check
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	APIResponse[dto.HealthResponse]
//	@Failure	503	{object}	APIResponse[dto.HealthResponse]
//	@Router		/health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := dto.HealthResponse{
		Status: "healthy",
		Checks: make(map[string]string, len(h.checks)),
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
