package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tdhub/commandhub/internal/application/dashboard"
)

// DashboardUseCase builds the signed-in user's dashboard
type DashboardUseCase interface {
	Summary(ctx context.Context, userID uuid.UUID) (*dashboard.Summary, error)
}

// DashboardHandler serves the dashboard page data
type DashboardHandler struct {
	BaseHandler
	dashboard DashboardUseCase
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(svc DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{dashboard: svc}
}

// Show returns the dashboard summary. Anonymous visitors are redirected to
// the login page by the session middleware before reaching here.
// GET /dashboard
func (h *DashboardHandler) Show(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	summary, err := h.dashboard.Summary(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
