package app

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/registry"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/security/token"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// lastMagicLink extracts the newest link printed by the dev log sender.
func (b *syncBuffer) lastMagicLink(t *testing.T) string {
	t.Helper()
	var link string
	sc := bufio.NewScanner(strings.NewReader(b.String()))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			continue
		}
		if rec["msg"] == "mailer.dev.magic_link" {
			link, _ = rec["link"].(string)
		}
	}
	if link == "" {
		t.Fatalf("no magic link logged")
	}
	return link
}

func testAppConfig() Config {
	cfg := LoadConfig()
	cfg.Env = "development"
	cfg.DatabaseURL = ""
	cfg.RedisURL = ""
	cfg.RegistryURL = ""
	cfg.SMTPAddr = ""
	cfg.DirectoryFile = ""
	cfg.AuthorizedEmails = []string{"jane@fund.com"}
	cfg.MetricsEnabled = true
	return cfg
}

func newTestApp(t *testing.T, cfg Config) (*App, *syncBuffer) {
	t.Helper()
	t.Setenv(token.SecretEnvKey, testSecret)
	t.Setenv("JBV_PUBLIC_BASE_URL", "")
	t.Setenv("JBV_AUTH_VERIFY_PATH", "")

	logs := &syncBuffer{}
	log := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	a, err := New(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, logs
}

func TestApp_LoginFlowThroughMiddleware(t *testing.T) {
	a, logs := newTestApp(t, testAppConfig())
	h := a.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/request-magic-link", strings.NewReader(`{"email":"Jane@Fund.com"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("request status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("middleware headers missing: %v", rr.Header())
	}

	link, err := url.Parse(logs.lastMagicLink(t))
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, link.RequestURI(), nil))
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/" {
		t.Fatalf("verify status=%d Location=%q", rr.Code, rr.Header().Get("Location"))
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "jbv_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("no session cookie")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/investor/returns", strings.NewReader(`{}`))
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"trajectory"`) {
		t.Fatalf("returns status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/investor/profile", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated profile status=%d", rr.Code)
	}

	if !strings.Contains(logs.String(), `"route":"/api/auth/request-magic-link"`) {
		t.Fatalf("request log missing route pattern")
	}
}

func TestApp_UnauthorizedEmail(t *testing.T) {
	a, logs := newTestApp(t, testAppConfig())

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/request-magic-link", strings.NewReader(`{"email":"stranger@elsewhere.com"}`)))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rr.Code)
	}
	if strings.Contains(logs.String(), "stranger@elsewhere.com") {
		t.Fatalf("raw email leaked into logs")
	}
}

func TestApp_HealthReadyMetrics(t *testing.T) {
	a, _ := newTestApp(t, testAppConfig())
	h := a.Handler()

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusOK},
		{"/metrics", http.StatusOK},
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.want {
			t.Fatalf("%s: status=%d want=%d", tc.path, rr.Code, tc.want)
		}
	}

	cfg := testAppConfig()
	cfg.ReadinessRequireDB = true
	strict, _ := newTestApp(t, cfg)
	rr := httptest.NewRecorder()
	strict.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db status=%d want=503", rr.Code)
	}
}

func TestApp_RedisBackedLinks(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testAppConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	a, logs := newTestApp(t, cfg)
	h := a.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/request-magic-link", strings.NewReader(`{"email":"jane@fund.com"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("request status=%d body=%s", rr.Code, rr.Body.String())
	}
	if n := len(mr.Keys()); n != 1 {
		t.Fatalf("expected one redis key, got %d", n)
	}

	link, err := url.Parse(logs.lastMagicLink(t))
	if err != nil {
		t.Fatal(err)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, link.RequestURI(), nil))
	if rr.Header().Get("Location") != "/" {
		t.Fatalf("verify Location=%q", rr.Header().Get("Location"))
	}
	if n := len(mr.Keys()); n != 0 {
		t.Fatalf("consumed link still in redis (%d keys)", n)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz status=%d", rr.Code)
	}
}

func TestNew_RequiresSecret(t *testing.T) {
	t.Setenv(token.SecretEnvKey, "")
	if _, err := New(context.Background(), testAppConfig(), slog.New(slog.DiscardHandler)); err == nil {
		t.Fatalf("expected error without session secret")
	}
}

func TestNewGate_RegistryDBWithoutPoolFallsBack(t *testing.T) {
	cfg := testAppConfig()
	cfg.RegistryDB = true

	logs := &syncBuffer{}
	gate, err := newGate(cfg, nil, slog.New(slog.NewJSONHandler(logs, nil)))
	if err != nil {
		t.Fatalf("newGate: %v", err)
	}

	ok, err := gate.IsAuthorizedEmail(context.Background(), "Jane@Fund.com")
	if err != nil || !ok {
		t.Fatalf("allowlist fallback failed: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(logs.String(), "registry.config.invalid") {
		t.Fatalf("missing misconfiguration log: %s", logs.String())
	}

	cfg.AuthorizedEmails = nil
	gate, err = newGate(cfg, nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newGate: %v", err)
	}
	if _, err := gate.IsAuthorizedEmail(context.Background(), "jane@fund.com"); !errors.Is(err, registry.ErrNotConfigured) {
		t.Fatalf("err=%v want ErrNotConfigured", err)
	}

	cfg.Env = "production"
	if _, err := newGate(cfg, nil, slog.New(slog.NewJSONHandler(io.Discard, nil))); !errors.Is(err, ErrSecurityPolicy) {
		t.Fatalf("production err=%v want ErrSecurityPolicy", err)
	}
}

func TestNew_ProductionRejectsMalformedIntegrations(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "smtp address without port",
			mutate:  func(c *Config) { c.SMTPAddr = "smtp.example.com" },
			wantErr: "JBV_SMTP_ADDR",
		},
		{
			name:    "smtp from not an address",
			mutate:  func(c *Config) { c.SMTPFrom = "investor relations" },
			wantErr: "JBV_SMTP_ADDR/JBV_SMTP_FROM",
		},
		{
			name: "registry url with unsupported scheme",
			mutate: func(c *Config) {
				c.RegistryURL = "ftp://registry"
				c.AuthorizedEmails = nil
			},
			wantErr: "JBV_REGISTRY_URL",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(token.SecretEnvKey, testSecret)
			t.Setenv("JBV_PUBLIC_BASE_URL", "https://ir.jbv.example")
			t.Setenv("JBV_AUTH_VERIFY_PATH", "")

			cfg := testAppConfig()
			cfg.Env = "production"
			cfg.SMTPAddr = "smtp.example.com:587"
			cfg.SMTPFrom = "JBV Investor Relations <ir@jbv.example>"
			tc.mutate(&cfg)

			a, err := New(context.Background(), cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
			if err == nil {
				_ = a.Close(context.Background())
				t.Fatalf("New succeeded with a malformed integration")
			}
			if !errors.Is(err, ErrSecurityPolicy) || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err=%v want ErrSecurityPolicy mentioning %q", err, tc.wantErr)
			}
		})
	}
}

func TestNew_ProductionAcceptsWellFormedIntegrations(t *testing.T) {
	t.Setenv(token.SecretEnvKey, testSecret)
	t.Setenv("JBV_PUBLIC_BASE_URL", "https://ir.jbv.example")
	t.Setenv("JBV_AUTH_VERIFY_PATH", "")

	cfg := testAppConfig()
	cfg.Env = "production"
	cfg.SMTPAddr = "smtp.example.com:587"
	cfg.SMTPFrom = "JBV Investor Relations <ir@jbv.example>"
	cfg.RegistryURL = "https://registry.jbv.example/check"

	a, err := New(context.Background(), cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = a.Close(context.Background())
}
