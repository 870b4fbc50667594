package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tdhub/commandhub/internal/application/dashboard"
	identityapp "github.com/tdhub/commandhub/internal/application/identity"
	"github.com/tdhub/commandhub/internal/infrastructure/auth"
	"github.com/tdhub/commandhub/internal/interfaces/http/middleware"
)

// MockDashboardService is a mock implementation of DashboardUseCase
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Summary(ctx context.Context, userID uuid.UUID) (*dashboard.Summary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dashboard.Summary), args.Error(1)
}

// MockSessionValidator is a mock implementation of middleware.SessionValidator
type MockSessionValidator struct {
	mock.Mock
}

func (m *MockSessionValidator) ValidateSession(ctx context.Context, token string) (*auth.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func setupDashboardRouter(svc *MockDashboardService, validator *MockSessionValidator) *gin.Engine {
	router := gin.New()
	router.GET("/dashboard", middleware.SessionAuth(middleware.SessionConfig{
		Validator:  validator,
		CookieName: "td-session",
		LoginPath:  "/login",
	}), NewDashboardHandler(svc).Show)
	return router
}

func TestDashboardHandler_RedirectsAnonymous(t *testing.T) {
	svc := new(MockDashboardService)
	router := setupDashboardRouter(svc, new(MockSessionValidator))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=/dashboard", w.Header().Get("Location"))
	svc.AssertNotCalled(t, "Summary", mock.Anything, mock.Anything)
}

func TestDashboardHandler_RedirectsExpiredSession(t *testing.T) {
	validator := new(MockSessionValidator)
	validator.On("ValidateSession", mock.Anything, "stale").Return(nil, auth.ErrExpiredToken)
	router := setupDashboardRouter(new(MockDashboardService), validator)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "td-session", Value: "stale"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
}

func TestDashboardHandler_Show(t *testing.T) {
	userID := uuid.New()
	validator := new(MockSessionValidator)
	validator.On("ValidateSession", mock.Anything, "good").
		Return(&auth.Claims{UserID: userID.String(), Role: "admin"}, nil)

	svc := new(MockDashboardService)
	svc.On("Summary", mock.Anything, userID).Return(&dashboard.Summary{
		User:         &identityapp.UserInfo{ID: userID, Email: "admin@example.com", Role: "admin"},
		Subscription: dashboard.SubscriptionSummary{Status: "active", Entitled: true},
		Admin: &dashboard.AdminSummary{
			Invites:             map[string]int64{"pending": 2, "accepted": 5},
			ActiveSubscriptions: 7,
		},
		GeneratedAt: time.Now(),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "td-session", Value: "good"})
	w := httptest.NewRecorder()
	setupDashboardRouter(svc, validator).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	admin := data["admin"].(map[string]any)
	assert.Equal(t, float64(7), admin["active_subscriptions"])
	assert.Equal(t, true, data["subscription"].(map[string]any)["entitled"])
	svc.AssertExpectations(t)
}
