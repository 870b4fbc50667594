package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tdhub/commandhub/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// checkTimeout bounds each dependency check
const checkTimeout = 2 * time.Second

// DependencyCheck tests one backing service, e.g. a database ping
type DependencyCheck func(ctx context.Context) error

// CheckResult is the outcome of one dependency check
type CheckResult struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// runChecks checks every dependency sequentially in name order
func runChecks(ctx context.Context, checks map[string]DependencyCheck) ([]CheckResult, bool) {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	results := make([]CheckResult, 0, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		start := time.Now()
		err := checks[name](checkCtx)
		cancel()

		r := CheckResult{Name: name, Healthy: err == nil, LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			healthy = false
			r.Error = "unavailable"
			logger.L(ctx).Warn("Dependency check failed", zap.String("dependency", name), zap.Error(err))
		}
		results = append(results, r)
	}
	return results, healthy
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	version string
	checks  map[string]DependencyCheck
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(version string, checks map[string]DependencyCheck) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

// Live reports that the process is serving requests
// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.version,
	})
}

// Ready reports whether every dependency answers
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	results, healthy := runChecks(c.Request.Context(), h.checks)

	status, code := "ready", http.StatusOK
	if !healthy {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": results,
	})
}
