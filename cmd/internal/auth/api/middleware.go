package authapi

import (
	"net/http"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/auth/session"
)

// RequireSession rejects requests without a valid session cookie (401 JSON) and stores the
// verified claims in the request context for next.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := h.verifyRequest(r)
		if !ok {
			WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Not signed in.")
			return
		}
		next.ServeHTTP(w, r.WithContext(session.ContextWithClaims(r.Context(), claims)))
	})
}

// Profiles exposes the resolver so session-protected handlers share the same directory.
func (h *Handler) Profiles() ProfileResolver {
	if h == nil {
		return nil
	}
	return h.profiles
}

func (h *Handler) verifyRequest(r *http.Request) (session.Claims, bool) {
	raw, ok := h.sessionTokenFromCookie(r)
	if !ok {
		return session.Claims{}, false
	}
	return h.codec.Verify(raw, h.now())
}
