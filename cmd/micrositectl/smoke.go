package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type smokeOptions struct {
	BaseURL      string
	Email        string
	ExpectStatus int
	Link         string
	Timeout      time.Duration
}

var smokeOpts = smokeOptions{
	BaseURL:      "http://127.0.0.1:8080",
	ExpectStatus: http.StatusOK,
	Timeout:      7 * time.Second,
}

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run a login smoke check against a running server",
	Long: `smoke validates a deployed microsite end to end:
  - /healthz and /readyz
  - anonymous /api/auth/session is rejected
  - request-magic-link answers --expect-status for --email
  - with --link: verify sets a session cookie and /api/auth/session accepts it`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateBaseURL(smokeOpts.BaseURL); err != nil {
			return fmt.Errorf("invalid --url: %w", err)
		}
		return runSmoke(cmd.Context(), cmd.OutOrStdout(), newSmokeClient(), smokeOpts)
	},
}

func init() {
	f := smokeCmd.Flags()
	f.StringVar(&smokeOpts.BaseURL, "url", smokeOpts.BaseURL, "Server base URL")
	f.StringVar(&smokeOpts.Email, "email", "", "Email to request a magic link for")
	f.IntVar(&smokeOpts.ExpectStatus, "expect-status", smokeOpts.ExpectStatus, "Expected request-magic-link status (403 for a negative check)")
	f.StringVar(&smokeOpts.Link, "link", "", "Magic link to redeem (single use)")
	f.DurationVar(&smokeOpts.Timeout, "timeout", smokeOpts.Timeout, "Per-step timeout")
}

// newSmokeClient never follows redirects so the verify step can inspect Location and cookies.
func newSmokeClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func runSmoke(ctx context.Context, out io.Writer, client *http.Client, o smokeOptions) error {
	base := strings.TrimRight(o.BaseURL, "/")

	step := func(name string, fn func(context.Context) error) error {
		stepCtx, cancel := context.WithTimeout(ctx, o.Timeout)
		defer cancel()

		start := time.Now()
		if err := fn(stepCtx); err != nil {
			fmt.Fprintf(out, "FAIL %-16s %v\n", name, err)
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Fprintf(out, "ok   %-16s %s\n", name, time.Since(start).Round(time.Millisecond))
		return nil
	}

	if err := step("healthz", func(ctx context.Context) error {
		_, err := expectStatus(ctx, client, http.MethodGet, base+"/healthz", nil, nil, http.StatusOK)
		return err
	}); err != nil {
		return err
	}
	if err := step("readyz", func(ctx context.Context) error {
		_, err := expectStatus(ctx, client, http.MethodGet, base+"/readyz", nil, nil, http.StatusOK)
		return err
	}); err != nil {
		return err
	}
	if err := step("session.anon", func(ctx context.Context) error {
		_, err := expectStatus(ctx, client, http.MethodGet, base+"/api/auth/session", nil, nil, http.StatusUnauthorized)
		return err
	}); err != nil {
		return err
	}

	if o.Email != "" {
		body, err := json.Marshal(map[string]string{"email": o.Email})
		if err != nil {
			return err
		}
		if err := step("request-link", func(ctx context.Context) error {
			_, err := expectStatus(ctx, client, http.MethodPost, base+"/api/auth/request-magic-link", body, nil, o.ExpectStatus)
			return err
		}); err != nil {
			return err
		}
	}

	if o.Link == "" {
		return nil
	}

	var cookies []*http.Cookie
	if err := step("verify", func(ctx context.Context) error {
		resp, err := expectStatus(ctx, client, http.MethodGet, o.Link, nil, nil, http.StatusFound)
		if err != nil {
			return err
		}
		if loc := resp.Header.Get("Location"); strings.Contains(loc, "status=") {
			return fmt.Errorf("redirected to %s", loc)
		}
		cookies = resp.Cookies()
		if len(cookies) == 0 {
			return errors.New("no session cookie set")
		}
		return nil
	}); err != nil {
		return err
	}

	return step("session.auth", func(ctx context.Context) error {
		resp, err := expectStatus(ctx, client, http.MethodGet, base+"/api/auth/session", nil, cookies, http.StatusOK)
		if err != nil {
			return err
		}
		var sess struct {
			Authenticated bool   `json:"authenticated"`
			UserID        string `json:"userId"`
		}
		if err := json.Unmarshal(resp.body, &sess); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if !sess.Authenticated || sess.UserID == "" {
			return fmt.Errorf("session not authenticated: %s", resp.body)
		}
		return nil
	})
}

type smokeResponse struct {
	*http.Response
	body []byte
}

func expectStatus(ctx context.Context, client *http.Client, method, target string, body []byte, cookies []*http.Cookie, want int) (*smokeResponse, error) {
	var rd io.Reader
	if body != nil {
		rd = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != want {
		return nil, fmt.Errorf("%s %s: status=%d want=%d body=%s", method, req.URL.Path, resp.StatusCode, want, strings.TrimSpace(string(b)))
	}
	return &smokeResponse{Response: resp, body: b}, nil
}
