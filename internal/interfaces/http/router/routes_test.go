package router

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/tdhub/commandhub/internal/interfaces/http/handler"
)

func TestRegisterRoutes(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	RegisterRoutes(r, Handlers{
		Auth:      &handler.AuthHandler{},
		Affiliate: &handler.AffiliateHandler{},
		Billing:   &handler.BillingHandler{},
		Chat:      &handler.ChatHandler{},
		Upload:    &handler.UploadHandler{},
		Mailing:   &handler.MailingHandler{},
		Debug:     handler.NewDebugHandler(handler.DebugInfo{}, nil),
		Dashboard: &handler.DashboardHandler{},
		Swagger:   func(c *gin.Context) { c.String(http.StatusOK, "docs") },
	}, Guards{
		Session: deny,
		Admin:   deny,
		PageSession: func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/login?next=/dashboard")
			c.Abort()
		},
	})
	r.Setup()

	registered := map[string]bool{}
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /api/auth/login",
		"POST /api/auth/logout",
		"GET /api/auth/me",
		"POST /api/affiliates",
		"GET /api/affiliates",
		"POST /api/affiliates/:id/revoke",
		"GET /api/affiliates/invite/:code",
		"POST /api/affiliates/accept",
		"POST /api/stripe/webhook",
		"POST /api/stripe/checkout",
		"POST /api/stripe/portal",
		"GET /api/subscription",
		"POST /api/chat",
		"POST /api/upload",
		"POST /api/mailing-list",
		"GET /api/debug/ping",
		"GET /api/debug/config",
		"GET /dashboard",
		"GET /swagger/*any",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}

	t.Run("protected routes are guarded", func(t *testing.T) {
		for _, path := range []string{"/api/chat", "/api/upload", "/api/stripe/portal", "/api/affiliates"} {
			assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodPost, path).Code, path)
		}
		assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/debug/config").Code)
	})

	t.Run("public routes are open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/debug/ping").Code)
	})

	t.Run("swagger is served outside the api prefix", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/swagger/index.html")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "docs", w.Body.String())
	})

	t.Run("dashboard redirects", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/dashboard")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?next=/dashboard", w.Header().Get("Location"))
	})
}

func TestRegisterRoutes_SwaggerGuards(t *testing.T) {
	handlers := Handlers{
		Auth:      &handler.AuthHandler{},
		Affiliate: &handler.AffiliateHandler{},
		Billing:   &handler.BillingHandler{},
		Chat:      &handler.ChatHandler{},
		Upload:    &handler.UploadHandler{},
		Mailing:   &handler.MailingHandler{},
		Debug:     handler.NewDebugHandler(handler.DebugInfo{}, nil),
		Dashboard: &handler.DashboardHandler{},
	}

	t.Run("no handler leaves swagger unrouted", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine)
		RegisterRoutes(r, handlers, Guards{})
		r.Setup()
		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/swagger/index.html").Code)
	})

	t.Run("guards run before the handler", func(t *testing.T) {
		engine := gin.New()
		r := NewRouter(engine)
		withDocs := handlers
		withDocs.Swagger = func(c *gin.Context) { c.String(http.StatusOK, "docs") }
		var order []string
		RegisterRoutes(r, withDocs, Guards{Swagger: []gin.HandlerFunc{
			func(c *gin.Context) { order = append(order, "ip"); c.Next() },
			nil,
			func(c *gin.Context) { order = append(order, "admin"); c.AbortWithStatus(http.StatusForbidden) },
		}})
		r.Setup()

		assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/swagger/index.html").Code)
		assert.Equal(t, []string{"ip", "admin"}, order)
	})
}
