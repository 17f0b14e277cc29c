package authapi

import (
	"time"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/internal/directory"
)

type requestLinkRequest struct {
	Email string `json:"email"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type sessionResponse struct {
	Authenticated bool              `json:"authenticated"`
	Email         string            `json:"email"`
	UserID        string            `json:"userId"`
	Profile       directory.Profile `json:"profile"`
	ExpiresAt     time.Time         `json:"expiresAt"`
}
