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
	identityapp "github.com/tdhub/commandhub/internal/application/identity"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/shared"
	"github.com/tdhub/commandhub/internal/infrastructure/auth"
	"github.com/tdhub/commandhub/internal/infrastructure/config"
	"github.com/tdhub/commandhub/internal/interfaces/http/middleware"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByStripeCustomerID(ctx context.Context, customerID string) (*identity.User, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "test-secret-key-32-characters-long",
		Issuer:     "commandhub-test",
		TTL:        7 * 24 * time.Hour,
		CookieName: "td-session",
		CookiePath: "/",
		SameSite:   "lax",
	}
}

func createTestUserForHandler(t *testing.T, password string) *identity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := identity.NewUserWithHash("admin@example.com", string(hash), "Admin", identity.RoleAdmin)
	require.NoError(t, err)
	return user
}

type authFixture struct {
	users   *MockUserRepository
	service *identityapp.AuthService
	router  *gin.Engine
}

func setupAuthRouter(t *testing.T) *authFixture {
	t.Helper()
	sessions, err := auth.NewSessionService(testSessionConfig())
	require.NoError(t, err)

	users := new(MockUserRepository)
	service := identityapp.NewAuthService(users, nil, sessions, auth.NewInMemoryRevocationList(), nil)
	h := NewAuthHandler(service, NewSessionCookie(testSessionConfig()))

	sessionMW := middleware.SessionAuth(middleware.SessionConfig{Validator: service, CookieName: "td-session"})
	router := gin.New()
	router.POST("/api/auth/login", h.Login)
	router.POST("/api/auth/logout", sessionMW, h.Logout)
	router.GET("/api/auth/me", sessionMW, h.Me)

	return &authFixture{users: users, service: service, router: router}
}

func postLogin(t *testing.T, router *gin.Engine, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, map[string]string{
		"email":    email,
		"password": password,
	}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "td-session" {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login_Success(t *testing.T) {
	f := setupAuthRouter(t)
	user := createTestUserForHandler(t, "correct-horse-battery")
	f.users.On("FindByEmail", mock.Anything, "admin@example.com").Return(user, nil)
	f.users.On("Update", mock.Anything, user).Return(nil)

	w := postLogin(t, f.router, "Admin@Example.com", "correct-horse-battery")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.NotEmpty(t, data["token"])

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, data["token"], cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), float64(cookie.MaxAge), 5)
	f.users.AssertExpectations(t)
}

func TestAuthHandler_Login_FailuresLookIdentical(t *testing.T) {
	f := setupAuthRouter(t)
	user := createTestUserForHandler(t, "correct-horse-battery")
	f.users.On("FindByEmail", mock.Anything, "admin@example.com").Return(user, nil)
	f.users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, shared.ErrNotFound)

	wrongPassword := postLogin(t, f.router, "admin@example.com", "wrong-password")
	unknownEmail := postLogin(t, f.router, "nobody@example.com", "wrong-password")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)

	a := decodeResponse(t, wrongPassword)
	b := decodeResponse(t, unknownEmail)
	require.NotNil(t, a.Error)
	require.NotNil(t, b.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", a.Error.Code)
	assert.Equal(t, "Invalid email or password", a.Error.Message)
	assert.Equal(t, a.Error.Code, b.Error.Code)
	assert.Equal(t, a.Error.Message, b.Error.Message)
	assert.Nil(t, sessionCookie(wrongPassword))
	f.users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestAuthHandler_Login_InvalidRequestBody(t *testing.T) {
	f := setupAuthRouter(t)

	w := postLogin(t, f.router, "not-an-email", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestAuthHandler_LogoutRevokesSession(t *testing.T) {
	f := setupAuthRouter(t)
	user := createTestUserForHandler(t, "correct-horse-battery")
	f.users.On("FindByEmail", mock.Anything, "admin@example.com").Return(user, nil)
	f.users.On("Update", mock.Anything, user).Return(nil)
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	login := postLogin(t, f.router, "admin@example.com", "correct-horse-battery")
	cookie := sessionCookie(login)
	require.NotNil(t, cookie)

	me := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.AddCookie(cookie)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w.Code
	}
	require.Equal(t, http.StatusOK, me())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	cleared := sessionCookie(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	assert.Equal(t, http.StatusUnauthorized, me())
}

func TestAuthHandler_Me_Unauthorized(t *testing.T) {
	f := setupAuthRouter(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewSessionCookie(t *testing.T) {
	cfg := testSessionConfig()

	cfg.SameSite = "strict"
	assert.Equal(t, http.SameSiteStrictMode, NewSessionCookie(cfg).SameSite)

	cfg.SameSite = "none"
	sc := NewSessionCookie(cfg)
	assert.Equal(t, http.SameSiteNoneMode, sc.SameSite)
	assert.True(t, sc.Secure)

	cfg.SameSite = ""
	cfg.CookiePath = ""
	sc = NewSessionCookie(cfg)
	assert.Equal(t, http.SameSiteLaxMode, sc.SameSite)
	assert.Equal(t, "/", sc.Path)
}
