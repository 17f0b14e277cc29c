package authapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/identity/ids"
)

// Audit actions.
const (
	AuditLinkRequested = "auth.link.requested"
	AuditLinkDenied    = "auth.link.denied"
	AuditLinkVerified  = "auth.link.verified"
	AuditLinkRejected  = "auth.link.rejected"
	AuditLogout        = "auth.logout"
)

// AuditEvent is one row of the auth audit trail. UserID is the derived id, never the email.
type AuditEvent struct {
	Action    string
	UserID    string
	IP        net.IP
	UserAgent string
	Meta      map[string]any
	At        time.Time
}

// AuditSink records audit events. Failures are logged by the sink, never returned to handlers.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}

// PostgresAudit writes events to <schema>.audit_log.
type PostgresAudit struct {
	pool   *pgxpool.Pool
	schema string
	log    *slog.Logger
}

// NewPostgresAudit returns nil when pool is nil so callers can pass it straight to WithAuditSink.
func NewPostgresAudit(pool *pgxpool.Pool, log *slog.Logger) *PostgresAudit {
	if pool == nil {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &PostgresAudit{pool: pool, schema: "microsite", log: log}
}

func (a *PostgresAudit) Record(ctx context.Context, ev AuditEvent) {
	if a == nil || a.pool == nil {
		return
	}
	action := strings.TrimSpace(ev.Action)
	if action == "" {
		return
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var ipVal any
	if ev.IP != nil {
		ipVal = ev.IP.String()
	}

	var metaVal *string
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO `+pgx.Identifier{a.schema, "audit_log"}.Sanitize()+` (
			id, action, user_id, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
	`, ids.MustNewULID(at), action, trimOrNil(ev.UserID), at, ipVal, trimOrNil(ev.UserAgent), metaVal)
	if err != nil {
		a.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func (h *Handler) recordAudit(r *http.Request, action, userID string, meta map[string]any) {
	if h == nil || h.audit == nil {
		return
	}
	h.audit.Record(r.Context(), AuditEvent{
		Action:    action,
		UserID:    userID,
		IP:        clientIP(r, h.cfg.TrustProxy),
		UserAgent: r.UserAgent(),
		Meta:      meta,
		At:        h.now().UTC(),
	})
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
