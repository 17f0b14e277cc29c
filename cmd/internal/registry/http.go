package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTPLookup queries a JSON endpoint: GET {endpoint}?email=<canonical> -> {"authorized": bool}.
type HTTPLookup struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewHTTPLookup creates a lookup against endpoint; token is sent as a bearer credential when set.
// Timeouts come from the Gate's per-attempt context, so the client has none of its own.
func NewHTTPLookup(endpoint, token string, httpClient *http.Client) (*HTTPLookup, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrNotConfigured
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid endpoint %q", ErrNotConfigured, endpoint)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPLookup{
		endpoint:   endpoint,
		token:      strings.TrimSpace(token),
		httpClient: httpClient,
	}, nil
}

type lookupResponse struct {
	Authorized *bool `json:"authorized"`
}

func (l *HTTPLookup) Lookup(ctx context.Context, email string) (bool, error) {
	u, err := url.Parse(l.endpoint)
	if err != nil {
		return false, err
	}
	q := u.Query()
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("registry: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("registry: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("registry: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var out lookupResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("registry: decode response: %w", err)
	}
	if out.Authorized == nil {
		return false, fmt.Errorf("registry: response missing \"authorized\"")
	}
	return *out.Authorized, nil
}
