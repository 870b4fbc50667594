package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tdhub/commandhub/internal/infrastructure/auth"
	"github.com/tdhub/commandhub/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Session context keys
const (
	SessionClaimsKey = "session_claims"
	UserIDKey        = "user_id"
	UserRoleKey      = "user_role"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// SessionValidator verifies a session token and rejects revoked sessions
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*auth.Claims, error)
}

// SessionConfig holds configuration for the session middleware
type SessionConfig struct {
	Validator  SessionValidator
	CookieName string
	// LoginPath turns failures into a 302 to LoginPath?next=<path> instead of a 401.
	// Used for page routes such as /dashboard.
	LoginPath string
	Logger    *zap.Logger
}

// SessionAuth requires a valid session cookie. A bearer token is accepted
// as well for API clients that do not keep cookies.
func SessionAuth(cfg SessionConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := sessionToken(c, cfg.CookieName)
		if token == "" {
			rejectSession(c, cfg)
			return
		}

		claims, err := cfg.Validator.ValidateSession(c.Request.Context(), token)
		if err != nil {
			cfg.Logger.Warn("Session validation failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			rejectSession(c, cfg)
			return
		}

		setSession(c, claims)
		cfg.Logger.Debug("Session authenticated", zap.String("user_id", claims.UserID))
		c.Next()
	}
}

// OptionalSession attaches the session when a valid one is present and never rejects
func OptionalSession(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := sessionToken(c, cfg.CookieName); token != "" {
			if claims, err := cfg.Validator.ValidateSession(c.Request.Context(), token); err == nil {
				setSession(c, claims)
			}
		}
		c.Next()
	}
}

// RequireRole allows the request only for the listed roles. It must run after SessionAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetUserRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You do not have access to this resource",
			},
		})
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil && v != "" {
			return v
		}
	}
	if h := c.GetHeader(AuthHeaderKey); strings.HasPrefix(h, BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, BearerPrefix))
	}
	return ""
}

func setSession(c *gin.Context, claims *auth.Claims) {
	c.Set(SessionClaimsKey, claims)
	c.Set(UserIDKey, claims.UserID)
	c.Set(UserRoleKey, claims.Role)

	ctx, _ := logger.WithUserID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.UserID)
	c.Request = c.Request.WithContext(ctx)
}

func rejectSession(c *gin.Context, cfg SessionConfig) {
	if cfg.LoginPath != "" {
		c.Redirect(http.StatusFound, LoginRedirect(cfg.LoginPath, c.Request.URL.Path))
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": "Authentication required",
		},
	})
}

// LoginRedirect builds loginPath?next=<next>. Only local absolute paths are
// kept in next so the login page cannot be turned into an open redirect.
func LoginRedirect(loginPath, next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return loginPath
	}
	return loginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// GetSessionClaims returns the claims stored by SessionAuth
func GetSessionClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(SessionClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetUserID returns the authenticated user id, or "" when anonymous
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUserRole returns the authenticated user's role, or "" when anonymous
func GetUserRole(c *gin.Context) string {
	return c.GetString(UserRoleKey)
}
