// Package investor serves the session-protected investor endpoints: profile lookup and
// the return / fee-waterfall calculators.
package investor

import (
	"log/slog"
	"math"
	"net/http"
	"time"

	authapi "github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/auth/api"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/auth/session"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/directory"
	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/returns"
)

const (
	defaultMaxBodyBytes = 16 << 10

	// Horizons beyond this are not meaningful for a single fund vintage.
	maxYears = 50
)

// Handler serves /api/investor/*.
type Handler struct {
	log          *slog.Logger
	profiles     authapi.ProfileResolver
	maxBodyBytes int64
}

// NewHandler returns a Handler. A nil profiles resolver falls back to email-derived profiles.
func NewHandler(log *slog.Logger, profiles authapi.ProfileResolver) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if profiles == nil {
		profiles = directory.Empty()
	}
	return &Handler{log: log, profiles: profiles, maxBodyBytes: defaultMaxBodyBytes}
}

// Register mounts the endpoints behind requireSession.
func (h *Handler) Register(mux *http.ServeMux, requireSession func(http.Handler) http.Handler) {
	if h == nil || mux == nil || requireSession == nil {
		return
	}
	mux.Handle("/api/investor/profile", requireSession(http.HandlerFunc(h.handleProfile)))
	mux.Handle("/api/investor/returns", requireSession(http.HandlerFunc(h.handleReturns)))
	mux.Handle("/api/investor/waterfall", requireSession(http.HandlerFunc(h.handleWaterfall)))
	mux.Handle("/api/investor/scenario/default", requireSession(http.HandlerFunc(h.handleDefaultScenario)))
}

type profileResponse struct {
	UserID    string            `json:"userId"`
	Email     string            `json:"email"`
	Profile   directory.Profile `json:"profile"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type returnsRequest struct {
	Scenario *returns.Scenario `json:"scenario"`
}

type returnsResponse struct {
	Scenario   returns.Scenario `json:"scenario"`
	Metrics    returns.Metrics  `json:"metrics"`
	Trajectory []returns.Point  `json:"trajectory"`
}

type waterfallRequest struct {
	Commitment float64  `json:"commitment"`
	MgmtFeePct float64  `json:"mgmtFeePct"`
	CarryPct   float64  `json:"carryPct"`
	GrossMoM   *float64 `json:"grossMoM"`
	Ownership  *float64 `json:"ownership"`
	MarketCap  *float64 `json:"marketCap"`
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	claims, ok := session.ClaimsFromContext(r.Context())
	if !ok {
		authapi.WriteError(w, http.StatusUnauthorized, authapi.CodeUnauthorized, "Not signed in.")
		return
	}
	authapi.WriteJSON(w, http.StatusOK, profileResponse{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Profile:   h.profiles.ResolveUserProfile(claims.Email, claims.UserID),
		ExpiresAt: claims.ExpiresAt,
	})
}

func (h *Handler) handleReturns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req returnsRequest
	if err := authapi.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, authapi.CodeInvalid, "Invalid request body.")
		return
	}

	s := returns.DefaultScenario()
	if req.Scenario != nil {
		s = req.Scenario.Normalize()
	}
	if s.Years < 0 || s.Years > maxYears || s.EntryValuation < 0 || s.ExitValuation < 0 {
		authapi.WriteError(w, http.StatusBadRequest, authapi.CodeInvalid, "Scenario values are out of range.")
		return
	}

	m := returns.CalculateReturnMetrics(s)
	authapi.WriteJSON(w, http.StatusOK, returnsResponse{
		Scenario:   s,
		Metrics:    m,
		Trajectory: returns.BuildValueTrajectory(s, m),
	})
}

func (h *Handler) handleWaterfall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req waterfallRequest
	if err := authapi.DecodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, authapi.CodeInvalid, "Invalid request body.")
		return
	}
	if msg := req.validate(); msg != "" {
		authapi.WriteError(w, http.StatusBadRequest, authapi.CodeInvalid, msg)
		return
	}

	var out returns.Waterfall
	if req.GrossMoM != nil {
		out = returns.NetToInvestors(req.Commitment, req.MgmtFeePct, *req.GrossMoM, req.CarryPct)
	} else {
		out = returns.NetToInvestorsFromOwnership(req.Commitment, req.MgmtFeePct, *req.Ownership, *req.MarketCap, req.CarryPct)
	}
	authapi.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDefaultScenario(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	s := returns.DefaultScenario()
	m := returns.CalculateReturnMetrics(s)
	authapi.WriteJSON(w, http.StatusOK, returnsResponse{
		Scenario:   s,
		Metrics:    m,
		Trajectory: returns.BuildValueTrajectory(s, m),
	})
}

// validate returns a user-facing message, or "" when the request is usable.
func (req waterfallRequest) validate() string {
	if !nonNegative(req.Commitment) {
		return "Commitment must be a non-negative number."
	}
	if !fraction(req.MgmtFeePct) || req.MgmtFeePct == 1 {
		return "Management fee must be between 0 and 1."
	}
	if !fraction(req.CarryPct) {
		return "Carry must be between 0 and 1."
	}

	byMultiple := req.GrossMoM != nil
	byOwnership := req.Ownership != nil || req.MarketCap != nil
	switch {
	case byMultiple == byOwnership:
		return "Provide either grossMoM or ownership and marketCap."
	case byMultiple:
		if !nonNegative(*req.GrossMoM) {
			return "Gross multiple must be a non-negative number."
		}
	default:
		if req.Ownership == nil || req.MarketCap == nil {
			return "Provide both ownership and marketCap."
		}
		if !fraction(*req.Ownership) || !nonNegative(*req.MarketCap) {
			return "Ownership must be between 0 and 1 and marketCap non-negative."
		}
	}
	return ""
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func fraction(v float64) bool {
	return nonNegative(v) && v <= 1
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	w.WriteHeader(http.StatusMethodNotAllowed)
}
