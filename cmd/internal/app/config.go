package app

import (
	"strings"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
// Subsystem settings (auth cookies, session signing) are loaded by their own packages.
type Config struct {
	Env       string
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBMigrate   bool

	RedisURL string

	// ReadinessRequireDB makes /readyz fail unless Postgres is configured and reachable.
	ReadinessRequireDB bool

	// Investor registry precedence: RegistryURL, then investor_access in Postgres
	// (RegistryDB), then the static AuthorizedEmails allowlist.
	RegistryURL      string
	RegistryToken    string
	RegistryTimeout  time.Duration
	RegistryRetries  int
	RegistryDB       bool
	AuthorizedEmails []string
	DirectoryFile    string

	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTimeout  time.Duration
	SMTPRetries  int

	RateLimitSweepEvery time.Duration
	LinkPurgeEvery      time.Duration

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	MetricsEnabled bool
}

// Production reports whether JBV_ENV selects production hardening.
func (c Config) Production() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "prod", "production":
		return true
	default:
		return false
	}
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		Env:       EnvString("JBV_ENV", "development"),
		HTTPAddr:  EnvString("JBV_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("JBV_LOG_LEVEL", "info"),
		LogFormat: EnvString("JBV_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("JBV_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("JBV_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("JBV_HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       EnvDuration("JBV_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("JBV_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		MaxHeaderBytes: EnvInt("JBV_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("JBV_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("JBV_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("JBV_DB_MIN_CONNS", 0),
		DBMigrate:   EnvBool("JBV_DB_MIGRATE", false),

		RedisURL: EnvString("JBV_REDIS_URL", ""),

		ReadinessRequireDB: EnvBool("JBV_READINESS_REQUIRE_DB", false),

		RegistryURL:      EnvString("JBV_REGISTRY_URL", ""),
		RegistryToken:    EnvString("JBV_REGISTRY_TOKEN", ""),
		RegistryTimeout:  EnvDuration("JBV_REGISTRY_TIMEOUT", 8*time.Second),
		RegistryRetries:  EnvCount("JBV_REGISTRY_RETRIES", 2),
		RegistryDB:       EnvBool("JBV_REGISTRY_DB", false),
		AuthorizedEmails: EnvList("JBV_AUTHORIZED_EMAILS"),
		DirectoryFile:    EnvString("JBV_DIRECTORY_FILE", ""),

		SMTPAddr:     EnvString("JBV_SMTP_ADDR", ""),
		SMTPUsername: EnvString("JBV_SMTP_USERNAME", ""),
		SMTPPassword: EnvString("JBV_SMTP_PASSWORD", ""),
		SMTPFrom:     EnvString("JBV_SMTP_FROM", ""),
		SMTPTimeout:  EnvDuration("JBV_SMTP_TIMEOUT", 10*time.Second),
		SMTPRetries:  EnvCount("JBV_SMTP_RETRIES", 2),

		RateLimitSweepEvery: EnvDuration("JBV_RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
		LinkPurgeEvery:      EnvDuration("JBV_LINK_PURGE_INTERVAL", 10*time.Minute),

		CORSAllowedOrigins:   EnvList("JBV_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("JBV_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("JBV_CORS_MAX_AGE_SECONDS", 600),

		MetricsEnabled: EnvBool("JBV_METRICS_ENABLED", true),
	}
}
