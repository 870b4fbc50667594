package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/tdhub/commandhub/internal/application/identity"
	"github.com/tdhub/commandhub/internal/infrastructure/auth"
	"github.com/tdhub/commandhub/internal/infrastructure/config"
	"github.com/tdhub/commandhub/internal/interfaces/http/middleware"
)

// AuthUseCase is the slice of the identity service the auth routes need
type AuthUseCase interface {
	Login(ctx context.Context, input identityapp.LoginInput) (*identityapp.LoginResult, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (*identityapp.UserInfo, error)
}

// LoginRequest is the login form
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginResponse is returned after a successful login. The token is also set
// as the session cookie.
type LoginResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	User      identityapp.UserInfo `json:"user"`
}

// LogoutResponse confirms the session was ended
type LogoutResponse struct {
	Message string `json:"message"`
}

// SessionCookie describes how the session cookie is written
type SessionCookie struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// NewSessionCookie builds cookie settings from the session config
func NewSessionCookie(cfg config.SessionConfig) SessionCookie {
	sc := SessionCookie{
		Name:   cfg.CookieName,
		Domain: cfg.CookieDomain,
		Path:   cfg.CookiePath,
		Secure: cfg.CookieSecure,
	}
	switch strings.ToLower(cfg.SameSite) {
	case "strict":
		sc.SameSite = http.SameSiteStrictMode
	case "none":
		sc.SameSite = http.SameSiteNoneMode
		sc.Secure = true
	default:
		sc.SameSite = http.SameSiteLaxMode
	}
	if sc.Path == "" {
		sc.Path = "/"
	}
	return sc
}

func (sc SessionCookie) write(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(sc.SameSite)
	c.SetCookie(sc.Name, value, maxAge, sc.Path, sc.Domain, sc.Secure, true)
}

// AuthHandler handles login, logout and the current user
type AuthHandler struct {
	BaseHandler
	auth   AuthUseCase
	cookie SessionCookie
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(svc AuthUseCase, cookie SessionCookie) *AuthHandler {
	return &AuthHandler{auth: svc, cookie: cookie}
}

// Login verifies credentials and sets the session cookie
// @Summary      Log in
// @Description  Verify email and password, set the session cookie and return the token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} dto.Response{data=LoginResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), identityapp.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	h.cookie.write(c, result.Token, maxAge)

	h.Success(c, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	})
}

// Logout revokes the session and clears the cookie
// @Summary      Log out
// @Description  Revoke the current session and clear the cookie
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=LogoutResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.GetSessionClaims(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.cookie.write(c, "", -1)
	h.Success(c, LogoutResponse{Message: "Logged out"})
}

// Me returns the current user
// @Summary      Current user
// @Description  Return the signed-in user
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=identityapp.UserInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	user, err := h.auth.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
