package authapi

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrConfig is returned for invalid auth configuration.
var ErrConfig = errors.New("authapi: invalid config")

// Config controls auth API behavior and security defaults.
type Config struct {
	// PublicBaseURL is the externally visible origin used to build magic links.
	PublicBaseURL string
	VerifyPath    string

	// SuccessRedirect is where a verified visitor lands; LoginPath receives ?status= on failure.
	SuccessRedirect string
	LoginPath       string

	TrustProxy   bool
	MaxBodyBytes int64

	SessionCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	// Link-request throttles: Max requests per Window, refilled continuously.
	RequestIPMax       int
	RequestIPWindow    time.Duration
	RequestEmailMax    int
	RequestEmailWindow time.Duration
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		PublicBaseURL:      "http://127.0.0.1:8080",
		VerifyPath:         "/api/auth/verify",
		SuccessRedirect:    "/",
		LoginPath:          "/login",
		MaxBodyBytes:       16 << 10,
		SessionCookieName:  "jbv_session",
		CookiePath:         "/",
		CookieSameSite:     http.SameSiteLaxMode,
		RequestIPMax:       10,
		RequestIPWindow:    15 * time.Minute,
		RequestEmailMax:    3,
		RequestEmailWindow: 15 * time.Minute,
	}
}

// LoadConfigFromEnv loads auth config from JBV_* environment variables.
// production forces Secure cookies regardless of JBV_AUTH_COOKIE_SECURE.
func LoadConfigFromEnv(production bool) (Config, error) {
	def := DefaultConfig()
	cfg := Config{
		PublicBaseURL:      envString("JBV_PUBLIC_BASE_URL", def.PublicBaseURL),
		VerifyPath:         envString("JBV_AUTH_VERIFY_PATH", def.VerifyPath),
		SuccessRedirect:    envString("JBV_AUTH_SUCCESS_REDIRECT", def.SuccessRedirect),
		LoginPath:          envString("JBV_AUTH_LOGIN_PATH", def.LoginPath),
		TrustProxy:         envBool("JBV_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:       envInt64("JBV_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		SessionCookieName:  envString("JBV_AUTH_COOKIE_NAME", def.SessionCookieName),
		CookiePath:         envString("JBV_AUTH_COOKIE_PATH", def.CookiePath),
		CookieDomain:       envString("JBV_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:       envBool("JBV_AUTH_COOKIE_SECURE", production),
		CookieSameSite:     parseSameSite(envString("JBV_AUTH_COOKIE_SAMESITE", "lax")),
		RequestIPMax:       envInt("JBV_AUTH_REQUEST_IP_MAX", def.RequestIPMax),
		RequestIPWindow:    envDuration("JBV_AUTH_REQUEST_IP_WINDOW", def.RequestIPWindow),
		RequestEmailMax:    envInt("JBV_AUTH_REQUEST_EMAIL_MAX", def.RequestEmailMax),
		RequestEmailWindow: envDuration("JBV_AUTH_REQUEST_EMAIL_WINDOW", def.RequestEmailWindow),
	}

	if production {
		cfg.CookieSecure = true
	}
	// Browsers drop SameSite=None cookies without Secure.
	if cfg.CookieSameSite == http.SameSiteNoneMode {
		cfg.CookieSecure = true
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values handlers depend on.
func (c Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.PublicBaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrConfig
	}
	for _, p := range []string{c.VerifyPath, c.SuccessRedirect, c.LoginPath, c.CookiePath} {
		// Local paths only: no open redirects through config.
		if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
			return ErrConfig
		}
	}
	if strings.TrimSpace(c.SessionCookieName) == "" || c.MaxBodyBytes <= 0 {
		return ErrConfig
	}
	return nil
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteLaxMode
	}
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
