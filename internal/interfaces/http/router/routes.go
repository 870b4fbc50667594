package router

import (
	"github.com/gin-gonic/gin"
	"github.com/tdhub/commandhub/internal/interfaces/http/handler"
)

// Handlers groups every HTTP handler the service exposes
type Handlers struct {
	Auth      *handler.AuthHandler
	Affiliate *handler.AffiliateHandler
	Billing   *handler.BillingHandler
	Chat      *handler.ChatHandler
	Upload    *handler.UploadHandler
	Mailing   *handler.MailingHandler
	Debug     *handler.DebugHandler
	Dashboard *handler.DashboardHandler
	// Swagger serves the API documentation; nil leaves /swagger unrouted
	Swagger gin.HandlerFunc
}

// Guards are the per-route middleware chains
type Guards struct {
	// Session rejects anonymous API calls with 401
	Session gin.HandlerFunc
	// OptionalSession attaches a session when present
	OptionalSession gin.HandlerFunc
	// PageSession redirects anonymous page visits to the login page
	PageSession gin.HandlerFunc
	// Admin must run after Session
	Admin gin.HandlerFunc

	LoginRateLimit gin.HandlerFunc
	WebhookBody    gin.HandlerFunc
	UploadBody     gin.HandlerFunc
	// Swagger runs in order before the documentation handler
	Swagger []gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// RegisterRoutes adds the command hub's API groups and pages to r
func RegisterRoutes(r *Router, h Handlers, g Guards) {
	authGroup := NewDomainGroup("auth", "/auth")
	authGroup.POST("/login", chain(g.LoginRateLimit, h.Auth.Login)...)
	authGroup.POST("/logout", chain(g.Session, h.Auth.Logout)...)
	authGroup.GET("/me", chain(g.Session, h.Auth.Me)...)
	r.Register(authGroup)

	affiliates := NewDomainGroup("affiliates", "/affiliates")
	affiliates.GET("/invite/:code", h.Affiliate.LookupInvite)
	affiliates.POST("/accept", h.Affiliate.AcceptInvite)
	admin := affiliates.Group("affiliates-admin", "")
	admin.Use(chain(g.Session, g.Admin)...)
	admin.POST("", h.Affiliate.CreateInvite)
	admin.GET("", h.Affiliate.ListInvites)
	admin.POST("/:id/revoke", h.Affiliate.RevokeInvite)
	r.Register(affiliates)

	stripe := NewDomainGroup("stripe", "/stripe")
	stripe.POST("/webhook", chain(g.WebhookBody, h.Billing.HandleWebhook)...)
	stripe.POST("/checkout", chain(g.OptionalSession, h.Billing.CreateCheckout)...)
	stripe.POST("/portal", chain(g.Session, h.Billing.CreatePortal)...)
	r.Register(stripe)

	subscription := NewDomainGroup("subscription", "/subscription")
	subscription.Use(chain(g.Session)...)
	subscription.GET("", h.Billing.GetSubscription)
	r.Register(subscription)

	chatGroup := NewDomainGroup("chat", "/chat")
	chatGroup.Use(chain(g.Session)...)
	chatGroup.POST("", h.Chat.Complete)
	r.Register(chatGroup)

	upload := NewDomainGroup("upload", "/upload")
	upload.Use(chain(g.Session)...)
	upload.POST("", chain(g.UploadBody, h.Upload.Upload)...)
	r.Register(upload)

	mailing := NewDomainGroup("mailing", "/mailing-list")
	mailing.POST("", h.Mailing.Subscribe)
	r.Register(mailing)

	debug := NewDomainGroup("debug", "/debug")
	debug.GET("/ping", h.Debug.Ping)
	debug.GET("/config", chain(g.Session, g.Admin, h.Debug.Config)...)
	r.Register(debug)

	dashboard := NewDomainGroup("dashboard", "/dashboard")
	dashboard.Use(chain(g.PageSession)...)
	dashboard.GET("", h.Dashboard.Show)
	r.RegisterPage(dashboard)

	if h.Swagger != nil {
		handlers := append(append([]gin.HandlerFunc{}, g.Swagger...), h.Swagger)
		docs := NewDomainGroup("swagger", "/swagger")
		docs.GET("/*any", chain(handlers...)...)
		r.RegisterPage(docs)
	}
}
