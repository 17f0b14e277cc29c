package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/identity"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/auth/magiclink"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/directory"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/mailer"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/metrics"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/registry"
)

// Handler wires the magic-link login flow to HTTP.
type Handler struct {
	log *slog.Logger
	cfg Config
	now func() time.Time

	gate     AuthorizationGate
	links    LinkStore
	codec    SessionCodec
	sender   mailer.Sender
	profiles ProfileResolver
	metrics  *metrics.Metrics
	audit    AuditSink

	ipLimiter    *keyedLimiter
	emailLimiter *keyedLimiter
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithSender sets the mail backend. Without one, link requests fail with a configuration error.
func WithSender(sender mailer.Sender) HandlerOption {
	return func(h *Handler) {
		if h == nil || sender == nil {
			return
		}
		h.sender = sender
	}
}

// WithProfiles sets the profile resolver used by the session endpoint.
func WithProfiles(p ProfileResolver) HandlerOption {
	return func(h *Handler) {
		if h == nil || p == nil {
			return
		}
		h.profiles = p
	}
}

// WithMetrics enables auth-flow counters.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil {
			return
		}
		h.metrics = m
	}
}

// WithAuditSink enables the audit trail.
func WithAuditSink(a AuditSink) HandlerOption {
	return func(h *Handler) {
		if h == nil || a == nil {
			return
		}
		h.audit = a
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs a Handler. gate, links and codec are required.
func NewHandler(log *slog.Logger, cfg Config, gate AuthorizationGate, links LinkStore, codec SessionCodec, opts ...HandlerOption) (*Handler, error) {
	if gate == nil || links == nil || codec == nil {
		return nil, errors.New("authapi: gate, link store and session codec are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:          log,
		cfg:          cfg,
		now:          time.Now,
		gate:         gate,
		links:        links,
		codec:        codec,
		sender:       notConfiguredSender{},
		profiles:     directory.Empty(),
		ipLimiter:    newKeyedLimiter(cfg.RequestIPMax, cfg.RequestIPWindow),
		emailLimiter: newKeyedLimiter(cfg.RequestEmailMax, cfg.RequestEmailWindow),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// StartJanitors begins periodic eviction of idle rate-limit buckets.
func (h *Handler) StartJanitors(interval time.Duration) {
	if h == nil {
		return
	}
	h.ipLimiter.startJanitor(interval)
	h.emailLimiter.startJanitor(interval)
}

// Close stops background janitors.
func (h *Handler) Close() {
	if h == nil {
		return
	}
	h.ipLimiter.Stop()
	h.emailLimiter.Stop()
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/request-magic-link", h.handleRequestMagicLink)
	mux.HandleFunc(h.cfg.VerifyPath, h.handleVerify)
	mux.HandleFunc("/api/auth/session", h.handleSession)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
}

// ---- handlers ----

func (h *Handler) handleRequestMagicLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	now := h.now()
	ctx := r.Context()

	if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
		if ok, retryAfter := h.ipLimiter.allow(ip.String(), now); !ok {
			h.log.Warn("auth.request_link.rate_limited", "scope", "ip")
			h.metrics.LinkRequested(CodeRateLimited)
			writeRateLimited(w, retryAfter)
			return
		}
	}

	var req requestLinkRequest
	if err := DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.metrics.LinkRequested(CodeInvalid)
		WriteError(w, http.StatusBadRequest, CodeInvalid, "Please enter a valid email address.")
		return
	}

	email := identity.NormalizeEmail(req.Email)
	if !identity.ValidEmail(email) {
		h.metrics.LinkRequested(CodeInvalid)
		WriteError(w, http.StatusBadRequest, CodeInvalid, "Please enter a valid email address.")
		return
	}
	userID := identity.DeriveUserID(email)

	authorized, err := h.gate.IsAuthorizedEmail(ctx, email)
	if err != nil {
		if errors.Is(err, registry.ErrNotConfigured) {
			h.log.Error("auth.request_link.registry_not_configured", "err", err)
			h.metrics.LinkRequested(CodeServer)
			WriteError(w, http.StatusInternalServerError, CodeServer, "Something went wrong. Please try again.")
			return
		}
		h.log.Error("auth.request_link.registry_unavailable", "err", err, "user_id", userID)
		h.metrics.LinkRequested(CodeRegistryUnavailable)
		WriteError(w, http.StatusServiceUnavailable, CodeRegistryUnavailable, "We couldn't verify your access right now. Please try again shortly.")
		return
	}
	if !authorized {
		h.log.Info("auth.request_link.unauthorized", "user_id", userID)
		h.metrics.LinkRequested(CodeUnauthorized)
		h.recordAudit(r, AuditLinkDenied, userID, nil)
		WriteError(w, http.StatusForbidden, CodeUnauthorized, "This email is not registered for investor access.")
		return
	}

	// Counted only for authorized emails: each allowed request mails a fresh link to the
	// investor, so the budget caps inbox volume rather than guarding the registry.
	if ok, retryAfter := h.emailLimiter.allow(email, now); !ok {
		h.log.Warn("auth.request_link.rate_limited", "scope", "email", "user_id", userID)
		h.metrics.LinkRequested(CodeRateLimited)
		writeRateLimited(w, retryAfter)
		return
	}

	tok, err := h.links.Issue(ctx, now, email)
	if err != nil {
		h.log.Error("auth.request_link.issue.fail", "err", err, "user_id", userID)
		h.metrics.LinkRequested(CodeServer)
		WriteError(w, http.StatusInternalServerError, CodeServer, "Something went wrong. Please try again.")
		return
	}

	err = h.sender.SendMagicLink(ctx, mailer.MagicLinkMessage{
		To:        email,
		Link:      h.magicLink(tok),
		ExpiresIn: magiclink.DefaultTTL,
	})
	if err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) || errors.Is(err, mailer.ErrInvalidMessage) {
			h.log.Error("auth.request_link.mailer_misconfigured", "err", err)
			h.metrics.LinkRequested(CodeServer)
			WriteError(w, http.StatusInternalServerError, CodeServer, "Something went wrong. Please try again.")
			return
		}
		h.log.Error("auth.request_link.email_failed", "err", err, "user_id", userID)
		h.metrics.LinkRequested(CodeEmailFailed)
		WriteError(w, http.StatusServiceUnavailable, CodeEmailFailed, "We couldn't send the email right now. Please try again shortly.")
		return
	}

	h.log.Info("auth.request_link.sent", "user_id", userID)
	h.metrics.LinkRequested("success")
	h.recordAudit(r, AuditLinkRequested, userID, nil)
	WriteJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	raw := strings.TrimSpace(r.URL.Query().Get("token"))
	if raw == "" {
		h.metrics.LinkVerified("missing_token")
		http.Redirect(w, r, h.loginRedirect("missing-token"), http.StatusFound)
		return
	}

	now := h.now()
	email, err := h.links.Consume(r.Context(), now, raw)
	if err != nil {
		if !errors.Is(err, magiclink.ErrInvalidToken) {
			h.log.Error("auth.verify.consume.fail", "err", err)
		}
		h.metrics.LinkVerified("invalid_token")
		h.recordAudit(r, AuditLinkRejected, "", nil)
		http.Redirect(w, r, h.loginRedirect("invalid-token"), http.StatusFound)
		return
	}

	userID := identity.DeriveUserID(email)
	signed, exp, err := h.codec.Create(email, now)
	if err != nil {
		h.log.Error("auth.verify.session.fail", "err", err, "user_id", userID)
		h.metrics.LinkVerified("session_error")
		http.Redirect(w, r, h.loginRedirect("invalid-token"), http.StatusFound)
		return
	}

	h.setSessionCookie(w, signed, exp)
	h.log.Info("auth.verify.success", "user_id", userID)
	h.metrics.LinkVerified("success")
	h.recordAudit(r, AuditLinkVerified, userID, nil)
	http.Redirect(w, r, h.cfg.SuccessRedirect, http.StatusFound)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	claims, ok := h.verifyRequest(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Not signed in.")
		return
	}

	WriteJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		Email:         claims.Email,
		UserID:        claims.UserID,
		Profile:       h.profiles.ResolveUserProfile(claims.Email, claims.UserID),
		ExpiresAt:     claims.ExpiresAt,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Sessions are stateless; logging out only removes the cookie from this browser.
	if claims, ok := h.verifyRequest(r); ok {
		h.recordAudit(r, AuditLogout, claims.UserID, nil)
	}
	h.expireSessionCookie(w)
	WriteJSON(w, http.StatusOK, successResponse{Success: true})
}
