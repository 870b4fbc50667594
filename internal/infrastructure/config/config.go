package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. HUB_STRIPE_SECRET_KEY.
const EnvPrefix = "HUB"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Auth      AuthConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Stripe    StripeConfig
	AI        AIConfig
	Email     EmailConfig
	Storage   StorageConfig
	Affiliate AffiliateConfig
	Telemetry TelemetryConfig
	Swagger   SwaggerConfig
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name      string
	Env       string
	Port      string
	PublicURL string // base URL used in links sent by email
	Version   string
}

// IsProduction reports whether the service runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string // full DSN; when set it wins over the discrete fields
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	MigrationsPath  string
}

// RedisConfig holds Redis connection settings. Redis is optional: with an
// empty Host the service falls back to in-process stores.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SessionConfig holds the session token and cookie settings
type SessionConfig struct {
	Secret       string
	Issuer       string
	TTL          time.Duration
	CookieName   string
	CookieDomain string
	CookiePath   string
	CookieSecure bool
	SameSite     string // strict, lax, none
}

// AuthConfig holds login-related settings
type AuthConfig struct {
	// SeedUsers lists admin accounts created at startup when missing.
	// Each entry is "email|bcrypt-hash|Display Name".
	SeedUsers []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	ShutdownTimeout       time.Duration
	MaxBodySize           int64
	RateLimitEnabled      bool
	RateLimitRequests     int
	RateLimitWindow       time.Duration
	AuthRateLimitRequests int
	AuthRateLimitWindow   time.Duration
	CORSAllowOrigins      []string
	TrustedProxies        []string
}

// StripeConfig holds Stripe billing settings
type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	Prices         map[string]string // plan name -> price id
	DefaultPlan    string
	SuccessURL     string
	CancelURL      string
	PortalReturn   string
	IdempotencyTTL time.Duration
}

// AIConfig holds the chat provider settings
type AIConfig struct {
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	MaxTokens       int
	Timeout         time.Duration
	SystemPrompt    string
}

// EmailConfig holds transactional email settings
type EmailConfig struct {
	ResendAPIKey     string
	From             string
	OutboxEnabled    bool
	OutboxBatchSize  int
	OutboxPoll       time.Duration
	OutboxMaxRetries int
	OutboxRetention  time.Duration
	OutboxCleanup    string // cron spec
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	MaxUploadSize   int64
	AllowedTypes    []string
	PresignExpiry   time.Duration
}

// Enabled reports whether a bucket is configured
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// Integrations reports which external services have credentials. Only
// booleans are exposed so the result is safe to show to operators.
func (c *Config) Integrations() map[string]bool {
	return map[string]bool{
		"stripe":         c.Stripe.SecretKey != "",
		"stripe_webhook": c.Stripe.WebhookSecret != "",
		"anthropic":      c.AI.AnthropicAPIKey != "",
		"openai":         c.AI.OpenAIAPIKey != "",
		"resend":         c.Email.ResendAPIKey != "",
		"s3":             c.Storage.Enabled(),
		"redis":          c.Redis.Enabled(),
		"telemetry":      c.Telemetry.Enabled,
	}
}

// AffiliateConfig holds invite settings
type AffiliateConfig struct {
	InviteTTL       time.Duration
	MaxCodeAttempts int
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
}

// SwaggerConfig controls the /swagger API documentation endpoint
type SwaggerConfig struct {
	Enabled      bool
	RequireAdmin bool
	AllowedIPs   []string // single IPs or CIDR ranges, empty allows all
}

// Load reads configuration. Priority (highest first):
//  1. HUB_* environment variables (a .env file is loaded into the environment first)
//  2. config.toml
//  3. built-in defaults
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name:      v.GetString("app.name"),
			Env:       v.GetString("app.env"),
			Port:      v.GetString("app.port"),
			PublicURL: v.GetString("app.public_url"),
			Version:   v.GetString("app.version"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			MigrationsPath:  v.GetString("database.migrations_path"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Session: SessionConfig{
			Secret:       v.GetString("session.secret"),
			Issuer:       v.GetString("session.issuer"),
			TTL:          v.GetDuration("session.ttl"),
			CookieName:   v.GetString("session.cookie_name"),
			CookieDomain: v.GetString("session.cookie_domain"),
			CookiePath:   v.GetString("session.cookie_path"),
			CookieSecure: v.GetBool("session.cookie_secure"),
			SameSite:     v.GetString("session.same_site"),
		},
		Auth: AuthConfig{
			SeedUsers: listValue(v, "auth.seed_users"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:           v.GetDuration("http.read_timeout"),
			WriteTimeout:          v.GetDuration("http.write_timeout"),
			IdleTimeout:           v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:       v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:           v.GetInt64("http.max_body_size"),
			RateLimitEnabled:      v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:     v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:       v.GetDuration("http.rate_limit_window"),
			AuthRateLimitRequests: v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:   v.GetDuration("http.auth_rate_limit_window"),
			CORSAllowOrigins:      listValue(v, "http.cors_allow_origins"),
			TrustedProxies:        listValue(v, "http.trusted_proxies"),
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("stripe.secret_key"),
			WebhookSecret:  v.GetString("stripe.webhook_secret"),
			Prices:         v.GetStringMapString("stripe.prices"),
			DefaultPlan:    v.GetString("stripe.default_plan"),
			SuccessURL:     v.GetString("stripe.success_url"),
			CancelURL:      v.GetString("stripe.cancel_url"),
			PortalReturn:   v.GetString("stripe.portal_return_url"),
			IdempotencyTTL: v.GetDuration("stripe.idempotency_ttl"),
		},
		AI: AIConfig{
			AnthropicAPIKey: v.GetString("ai.anthropic_api_key"),
			AnthropicModel:  v.GetString("ai.anthropic_model"),
			OpenAIAPIKey:    v.GetString("ai.openai_api_key"),
			OpenAIModel:     v.GetString("ai.openai_model"),
			MaxTokens:       v.GetInt("ai.max_tokens"),
			Timeout:         v.GetDuration("ai.timeout"),
			SystemPrompt:    v.GetString("ai.system_prompt"),
		},
		Email: EmailConfig{
			ResendAPIKey:     v.GetString("email.resend_api_key"),
			From:             v.GetString("email.from"),
			OutboxEnabled:    v.GetBool("email.outbox_enabled"),
			OutboxBatchSize:  v.GetInt("email.outbox_batch_size"),
			OutboxPoll:       v.GetDuration("email.outbox_poll_interval"),
			OutboxMaxRetries: v.GetInt("email.outbox_max_retries"),
			OutboxRetention:  v.GetDuration("email.outbox_retention"),
			OutboxCleanup:    v.GetString("email.outbox_cleanup_schedule"),
		},
		Storage: StorageConfig{
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			MaxUploadSize:   v.GetInt64("storage.max_upload_size"),
			AllowedTypes:    listValue(v, "storage.allowed_types"),
			PresignExpiry:   v.GetDuration("storage.presign_expiry"),
		},
		Affiliate: AffiliateConfig{
			InviteTTL:       v.GetDuration("affiliate.invite_ttl"),
			MaxCodeAttempts: v.GetInt("affiliate.max_code_attempts"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
		Swagger: SwaggerConfig{
			Enabled:      v.GetBool("swagger.enabled"),
			RequireAdmin: v.GetBool("swagger.require_admin"),
			AllowedIPs:   listValue(v, "swagger.allowed_ips"),
		},
	}
}

// listValue reads a list from TOML arrays or from a comma separated env value.
func listValue(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return v.GetStringSlice(key)
	}
}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.App.Name, "commandhub")
	setDefault(&cfg.App.Env, "development")
	setDefault(&cfg.App.Port, "8080")
	setDefault(&cfg.App.PublicURL, "http://localhost:3000")
	setDefault(&cfg.App.Version, "dev")

	setDefault(&cfg.Database.Host, "localhost")
	setDefault(&cfg.Database.User, "postgres")
	setDefault(&cfg.Database.DBName, "commandhub")
	setDefault(&cfg.Database.SSLMode, "disable")
	setDefault(&cfg.Database.MigrationsPath, "migrations")
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}

	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	setDefault(&cfg.Session.Issuer, "commandhub")
	setDefault(&cfg.Session.CookieName, "td-session")
	setDefault(&cfg.Session.CookiePath, "/")
	setDefault(&cfg.Session.SameSite, "lax")
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 7 * 24 * time.Hour
	}

	setDefault(&cfg.Log.Level, "info")
	setDefault(&cfg.Log.Format, "console")
	setDefault(&cfg.Log.Output, "stdout")

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// chat requests wait on upstream models
		cfg.HTTP.WriteTimeout = 90 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 15 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 12 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 120
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute
	}

	setDefault(&cfg.Stripe.DefaultPlan, "pro")
	if cfg.Stripe.IdempotencyTTL == 0 {
		cfg.Stripe.IdempotencyTTL = 24 * time.Hour
	}

	setDefault(&cfg.AI.AnthropicModel, "claude-sonnet-4-5")
	setDefault(&cfg.AI.OpenAIModel, "gpt-4o")
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 1024
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60 * time.Second
	}

	setDefault(&cfg.Email.From, "Command Hub <hub@example.com>")
	setDefault(&cfg.Email.OutboxCleanup, "@hourly")
	if cfg.Email.OutboxBatchSize == 0 {
		cfg.Email.OutboxBatchSize = 50
	}
	if cfg.Email.OutboxPoll == 0 {
		cfg.Email.OutboxPoll = 5 * time.Second
	}
	if cfg.Email.OutboxMaxRetries == 0 {
		cfg.Email.OutboxMaxRetries = 5
	}
	if cfg.Email.OutboxRetention == 0 {
		cfg.Email.OutboxRetention = 7 * 24 * time.Hour
	}

	setDefault(&cfg.Storage.Region, "us-east-1")
	if cfg.Storage.MaxUploadSize == 0 {
		cfg.Storage.MaxUploadSize = 10 << 20
	}
	if len(cfg.Storage.AllowedTypes) == 0 {
		cfg.Storage.AllowedTypes = []string{
			"image/png", "image/jpeg", "image/gif", "image/webp",
			"application/pdf", "text/plain", "text/csv",
		}
	}
	if cfg.Storage.PresignExpiry == 0 {
		cfg.Storage.PresignExpiry = 15 * time.Minute
	}

	if cfg.Affiliate.InviteTTL == 0 {
		cfg.Affiliate.InviteTTL = 7 * 24 * time.Hour
	}
	if cfg.Affiliate.MaxCodeAttempts == 0 {
		cfg.Affiliate.MaxCodeAttempts = 10
	}

	setDefault(&cfg.Telemetry.CollectorEndpoint, "localhost:4317")
	setDefault(&cfg.Telemetry.ServiceName, "commandhub")
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func (c *Config) validate() error {
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	switch c.Session.SameSite {
	case "strict", "lax", "none":
	default:
		return fmt.Errorf("session.same_site must be strict, lax or none, got %q", c.Session.SameSite)
	}

	if !c.App.IsProduction() {
		return nil
	}

	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session.secret must be at least 32 characters in production")
	}
	if !c.Session.CookieSecure {
		return fmt.Errorf("session.cookie_secure must be true in production")
	}
	if c.Database.URL == "" && c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	for _, origin := range c.HTTP.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("http.cors_allow_origins cannot be '*' in production")
		}
	}
	if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe.webhook_secret is required when stripe.secret_key is set in production")
	}
	if c.Swagger.Enabled && !c.Swagger.RequireAdmin {
		return fmt.Errorf("swagger.require_admin must be true when swagger is enabled in production")
	}
	return nil
}

// DSN returns the connection string, preferring the explicit URL.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
