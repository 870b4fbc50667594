package handler

import (
	"context"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tdhub/commandhub/internal/domain/notification"
	"github.com/tdhub/commandhub/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// DebugInfo is the static part of the debug report
type DebugInfo struct {
	Name         string
	Env          string
	Version      string
	Integrations map[string]bool
}

// DebugHandler serves operator diagnostics
type DebugHandler struct {
	BaseHandler
	info      DebugInfo
	checks    map[string]DependencyCheck
	outbox    OutboxStatsReader
	startTime time.Time
}

// OutboxStatsReader reports queued email by status
type OutboxStatsReader interface {
	OutboxStats(ctx context.Context) (map[notification.OutboxStatus]int64, error)
}

// NewDebugHandler creates a new DebugHandler
func NewDebugHandler(info DebugInfo, checks map[string]DependencyCheck) *DebugHandler {
	return &DebugHandler{
		info:      info,
		checks:    checks,
		startTime: time.Now(),
	}
}

// WithOutboxStats adds email outbox counts to the config report
func (h *DebugHandler) WithOutboxStats(reader OutboxStatsReader) *DebugHandler {
	h.outbox = reader
	return h
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ConfigResponse reports what is configured. Secrets never appear, only
// whether they are set.
type ConfigResponse struct {
	Name         string           `json:"name"`
	Env          string           `json:"env"`
	Version      string           `json:"version"`
	GoVersion    string           `json:"go_version"`
	Uptime       string           `json:"uptime"`
	Integrations map[string]bool  `json:"integrations"`
	Checks       []CheckResult    `json:"checks"`
	Outbox       map[string]int64 `json:"outbox,omitempty"`
}

// Ping is a cheap responsiveness check
// @Summary      Ping
// @Description  Cheap responsiveness check
// @Tags         debug
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /debug/ping [get]
func (h *DebugHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Config reports integration status and dependency pings
// @Summary      Configuration report
// @Description  Integration status, dependency checks and email outbox counts. Secrets are never shown.
// @Tags         debug
// @Produce      json
// @Success      200 {object} dto.Response{data=ConfigResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /debug/config [get]
func (h *DebugHandler) Config(c *gin.Context) {
	ctx := c.Request.Context()
	results, _ := runChecks(ctx, h.checks)

	h.Success(c, ConfigResponse{
		Name:         h.info.Name,
		Env:          h.info.Env,
		Version:      h.info.Version,
		GoVersion:    runtime.Version(),
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Integrations: h.info.Integrations,
		Checks:       results,
		Outbox:       h.outboxStats(ctx),
	})
}

func (h *DebugHandler) outboxStats(ctx context.Context) map[string]int64 {
	if h.outbox == nil {
		return nil
	}
	stats, err := h.outbox.OutboxStats(ctx)
	if err != nil {
		logger.L(ctx).Warn("Failed to read outbox stats", zap.Error(err))
		return nil
	}
	out := make(map[string]int64, len(stats))
	for status, n := range stats {
		out[string(status)] = n
	}
	return out
}
