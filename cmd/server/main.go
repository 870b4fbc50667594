package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/tdhub/commandhub/docs"
	affiliateapp "github.com/tdhub/commandhub/internal/application/affiliate"
	billingapp "github.com/tdhub/commandhub/internal/application/billing"
	chatapp "github.com/tdhub/commandhub/internal/application/chat"
	"github.com/tdhub/commandhub/internal/application/dashboard"
	identityapp "github.com/tdhub/commandhub/internal/application/identity"
	mailingapp "github.com/tdhub/commandhub/internal/application/mailing"
	notificationapp "github.com/tdhub/commandhub/internal/application/notification"
	uploadapp "github.com/tdhub/commandhub/internal/application/upload"
	"github.com/tdhub/commandhub/internal/domain/identity"
	"github.com/tdhub/commandhub/internal/domain/notification"
	"github.com/tdhub/commandhub/internal/infrastructure/ai"
	"github.com/tdhub/commandhub/internal/infrastructure/auth"
	infrabilling "github.com/tdhub/commandhub/internal/infrastructure/billing"
	"github.com/tdhub/commandhub/internal/infrastructure/cache"
	"github.com/tdhub/commandhub/internal/infrastructure/config"
	"github.com/tdhub/commandhub/internal/infrastructure/email"
	"github.com/tdhub/commandhub/internal/infrastructure/event"
	"github.com/tdhub/commandhub/internal/infrastructure/logger"
	"github.com/tdhub/commandhub/internal/infrastructure/migration"
	"github.com/tdhub/commandhub/internal/infrastructure/persistence"
	"github.com/tdhub/commandhub/internal/infrastructure/scheduler"
	"github.com/tdhub/commandhub/internal/infrastructure/storage"
	"github.com/tdhub/commandhub/internal/infrastructure/telemetry"
	"github.com/tdhub/commandhub/internal/interfaces/http/handler"
	"github.com/tdhub/commandhub/internal/interfaces/http/middleware"
	"github.com/tdhub/commandhub/internal/interfaces/http/router"
	"github.com/tdhub/commandhub/migrations"
	"go.uber.org/zap"
)

const slowQueryThreshold = 200 * time.Millisecond

//	@title			Command Hub API
//	@version		1.0
//	@description	Auth, affiliate invites, Stripe billing, AI chat, uploads and mailing list for the command hub.

//	@BasePath	/api

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token as "Bearer {token}". Browsers send the td-session cookie instead.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting command hub",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	ctx := context.Background()

	// Tracing
	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.TracerConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Environment:       cfg.App.Env,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	metrics := telemetry.NewMetrics()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), slowQueryThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:  cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if cfg.Database.AutoMigrate {
		runMigrations(db, log)
	}

	// Redis is optional; without it session revocation and webhook
	// idempotency are per instance
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	profileRepo := persistence.NewGormProfileRepository(db.DB)
	affiliateRepo := persistence.NewGormAffiliateRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	mailingRepo := persistence.NewGormMailingRepository(db.DB)
	outboxRepo := persistence.NewGormOutboxRepository(db.DB)

	// Sessions
	sessions, err := auth.NewSessionService(cfg.Session)
	if err != nil {
		log.Fatal("Failed to initialize sessions", zap.Error(err))
	}
	var revocation auth.RevocationList = auth.NewInMemoryRevocationList()
	if redisClient != nil {
		revocation = auth.NewRedisRevocationList(redisClient)
	}
	authService := identityapp.NewAuthService(userRepo, profileRepo, sessions, revocation, log)

	if len(cfg.Auth.SeedUsers) > 0 {
		admins, err := identityapp.ParseSeedUsers(cfg.Auth.SeedUsers)
		if err != nil {
			log.Fatal("Invalid seed users", zap.Error(err))
		}
		created, err := authService.SeedAdmins(ctx, admins)
		if err != nil {
			log.Fatal("Failed to seed admin users", zap.Error(err))
		}
		log.Info("Admin users seeded", zap.Int("created", created))
	}

	// Email
	var mailer notification.Mailer = email.NewLogMailer(log)
	if cfg.Email.ResendAPIKey != "" {
		mailer = email.NewResendMailer(cfg.Email.ResendAPIKey, cfg.Email.From)
	} else {
		log.Warn("Resend not configured, email is only logged")
	}
	notifications := notificationapp.NewService(mailer, outboxRepo, notificationapp.Config{
		UseOutbox:  cfg.Email.OutboxEnabled,
		MaxRetries: cfg.Email.OutboxMaxRetries,
	}, log)
	templates := notificationapp.NewTemplates(cfg.App.PublicURL)

	var outboxProcessor *email.OutboxProcessor
	if cfg.Email.OutboxEnabled {
		outboxProcessor = email.NewOutboxProcessor(outboxRepo, mailer, email.OutboxProcessorConfig{
			BatchSize:    cfg.Email.OutboxBatchSize,
			PollInterval: cfg.Email.OutboxPoll,
			Retention:    cfg.Email.OutboxRetention,
		}, metrics, log)
		outboxProcessor.Start(ctx)
	}

	// Domain events
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(notificationapp.NewAffiliateEmailHandler(notifications, templates, log))
	eventBus.Subscribe(metrics.EventCounter())
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Scheduled jobs
	jobs := scheduler.New(log, time.Minute)
	if outboxProcessor != nil {
		if err := jobs.Register("outbox-cleanup", cfg.Email.OutboxCleanup, outboxProcessor.Cleanup); err != nil {
			log.Fatal("Failed to schedule outbox cleanup", zap.Error(err))
		}
	}
	jobs.Start()

	// Billing
	var gateway billingapp.Gateway
	if cfg.Stripe.SecretKey != "" {
		stripeGateway, err := infrabilling.NewStripeGateway(cfg.Stripe.SecretKey, log)
		if err != nil {
			log.Fatal("Failed to initialize Stripe", zap.Error(err))
		}
		gateway = stripeGateway
	} else {
		log.Warn("Stripe not configured, checkout is disabled")
	}
	checkoutService := billingapp.NewCheckoutService(gateway, billingapp.CheckoutConfig{
		Prices:       cfg.Stripe.Prices,
		DefaultPlan:  cfg.Stripe.DefaultPlan,
		SuccessURL:   cfg.Stripe.SuccessURL,
		CancelURL:    cfg.Stripe.CancelURL,
		PortalReturn: cfg.Stripe.PortalReturn,
	}, userRepo, profileRepo, subscriptionRepo, log)

	idempotency := cache.NewIdempotencyStore(redisClient, log)
	webhookService := billingapp.NewWebhookService(billingapp.WebhookServiceConfig{
		WebhookSecret:  cfg.Stripe.WebhookSecret,
		Users:          userRepo,
		Subscriptions:  subscriptionRepo,
		Payments:       paymentRepo,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Stripe.IdempotencyTTL,
		Events:         eventBus,
		Logger:         log,
	})

	// Affiliates
	affiliateService := affiliateapp.NewService(affiliateRepo, userRepo, profileRepo, nil, eventBus, affiliateapp.Config{
		InviteTTL:       cfg.Affiliate.InviteTTL,
		MaxCodeAttempts: cfg.Affiliate.MaxCodeAttempts,
	}, log)

	// Chat
	aiOpts := func(key, model string) ai.Options {
		return ai.Options{
			APIKey:       key,
			Model:        model,
			MaxTokens:    cfg.AI.MaxTokens,
			SystemPrompt: cfg.AI.SystemPrompt,
			Timeout:      cfg.AI.Timeout,
		}
	}
	chatService := chatapp.NewService(
		ai.NewClaudeProvider(aiOpts(cfg.AI.AnthropicAPIKey, cfg.AI.AnthropicModel)),
		ai.NewGPTProvider(aiOpts(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIModel)),
		metrics,
		log,
	)

	// Dependency checks for readiness and debug
	checks := map[string]handler.DependencyCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	// Uploads
	var objectStore uploadapp.ObjectStore
	if cfg.Storage.Enabled() {
		s3Store, err := storage.NewS3ObjectStorage(ctx, &cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiry),
		)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		objectStore = s3Store
		checks["storage"] = s3Store.Ping
	} else {
		log.Warn("S3 bucket not configured, uploads are kept in memory")
		objectStore = storage.NewMemoryObjectStorage(cfg.App.PublicURL + "/files")
	}
	uploadService := uploadapp.NewService(objectStore, uploadapp.Config{
		MaxSize:      cfg.Storage.MaxUploadSize,
		AllowedTypes: cfg.Storage.AllowedTypes,
		URLExpiry:    cfg.Storage.PresignExpiry,
	}, log)

	mailingService := mailingapp.NewService(mailingRepo, notifications, templates, log)

	dashboardService := dashboard.NewService(dashboard.Sources{
		Users:         authService,
		Subscriptions: checkoutService,
		Invites:       affiliateRepo,
		SubCounts:     subscriptionRepo,
		Payments:      paymentRepo,
		Subscribers:   mailingRepo,
	}, log)

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register custom validators before any binding happens
	middleware.SetupValidator()

	engine := gin.New()

	// A nil list makes gin ignore X-Forwarded-For entirely
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracer.IsEnabled(),
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(metrics))

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.IsProduction()
	engine.Use(middleware.SecureWithConfig(security))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var limiters []*middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		limiters = append(limiters, limiter)
		engine.Use(middleware.RateLimit(limiter))
	}
	loginLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
	limiters = append(limiters, loginLimiter)

	healthHandler := handler.NewHealthHandler(cfg.App.Version, checks)
	engine.GET("/health", healthHandler.Live)
	engine.GET("/health/ready", healthHandler.Ready)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	sessionConfig := middleware.SessionConfig{
		Validator:  authService,
		CookieName: cfg.Session.CookieName,
		Logger:     log,
	}
	pageSessionConfig := sessionConfig
	pageSessionConfig.LoginPath = "/login"

	swaggerGuards := []gin.HandlerFunc{middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:    cfg.Swagger.Enabled,
		AllowedIPs: cfg.Swagger.AllowedIPs,
	})}
	if cfg.Swagger.RequireAdmin {
		swaggerGuards = append(swaggerGuards,
			middleware.SessionAuth(sessionConfig),
			middleware.RequireRole(string(identity.RoleAdmin)))
	}

	r := router.NewRouter(engine)
	router.RegisterRoutes(r, router.Handlers{
		Auth:      handler.NewAuthHandler(authService, handler.NewSessionCookie(cfg.Session)),
		Affiliate: handler.NewAffiliateHandler(affiliateService),
		Billing:   handler.NewBillingHandler(webhookService, checkoutService),
		Chat:      handler.NewChatHandler(chatService),
		Upload:    handler.NewUploadHandler(uploadService),
		Mailing:   handler.NewMailingHandler(mailingService),
		Debug: handler.NewDebugHandler(handler.DebugInfo{
			Name:         cfg.App.Name,
			Env:          cfg.App.Env,
			Version:      cfg.App.Version,
			Integrations: cfg.Integrations(),
		}, checks).WithOutboxStats(notifications),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		Swagger:   ginSwagger.WrapHandler(swaggerFiles.Handler),
	}, router.Guards{
		Session:         middleware.SessionAuth(sessionConfig),
		OptionalSession: middleware.OptionalSession(sessionConfig),
		PageSession:     middleware.SessionAuth(pageSessionConfig),
		Admin:           middleware.RequireRole(string(identity.RoleAdmin)),
		LoginRateLimit:  middleware.LoginRateLimit(loginLimiter),
		WebhookBody:     middleware.BodyLimit(middleware.WebhookBodyLimit),
		UploadBody:      middleware.BodyLimit(cfg.Storage.MaxUploadSize + 1<<20),
		Swagger:         swaggerGuards,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	for _, l := range limiters {
		l.Stop()
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Warn("Scheduler did not stop cleanly", zap.Error(err))
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Warn("Outbox processor did not stop cleanly", zap.Error(err))
		}
	}
	_ = eventBus.Stop(shutdownCtx)
	if err := idempotency.Close(); err != nil {
		log.Warn("Error closing idempotency store", zap.Error(err))
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error flushing traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func runMigrations(db *persistence.Database, log *zap.Logger) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	// Closing the migrator would close sqlDB, which the server keeps using
	if err := m.Up(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
}
