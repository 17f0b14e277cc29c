package app

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	got := stripANSI(in)
	want := "INFO plain ERR"
	if got != want {
		t.Fatalf("stripANSI()=%q want=%q", got, want)
	}
}

func TestPrettyHandler_HTTPRequestLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}, true))
	log.With("request_id", "01J0000000000000000000000").Info("http.request",
		"method", "post",
		"route", "POST /api/auth/request-magic-link",
		"status", 403,
		"status_class", "4xx",
		"duration_ms", int64(12),
		"result", "client_error",
	)

	plain := stripANSI(buf.String())
	for _, want := range []string{
		"INFO  http.request",
		"request_id=01J0000000000000000000000",
		"method=POST",
		`route="POST /api/auth/request-magic-link"`,
		"status=403",
		"class=4xx",
		"duration=12ms",
		"result=client_error",
	} {
		if !strings.Contains(plain, want) {
			t.Fatalf("missing %q in %q", want, plain)
		}
	}
	if !strings.Contains(buf.String(), ansiYellow+"403"+ansiReset) {
		t.Fatalf("4xx status should be yellow: %q", buf.String())
	}
}

func TestPrettyHandler_GroupsAndLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, false))
	log.Info("dropped")
	log.WithGroup("registry").Error("registry.lookup.fail", "err", "dial tcp: refused", "at", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "ERROR registry.lookup.fail") || !strings.Contains(out, `registry.err="dial tcp: refused"`) {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "registry.at=2026-01-02T03:04:05Z") {
		t.Fatalf("time attr not RFC3339: %q", out)
	}
}

func TestPrettyHandler_AttrsInheritGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, false))
	log.WithGroup("smtp").With("attempt", 2).Warn("mailer.send.retry", slog.Group("conn", "addr", "mail:587"), "err", errors.New("421 busy"))

	out := buf.String()
	for _, want := range []string{"WARN  mailer.send.retry", "smtp.attempt=2", "smtp.conn.addr=mail:587", `smtp.err="421 busy"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("color disabled but ANSI found: %q", out)
	}
}

func TestColorizeDurationMS(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ms   int64
		want string
	}{
		{ms: 5, want: ansiDim},
		{ms: 300, want: ansiYellow},
		{ms: 1500, want: ansiRed},
	}
	for _, tc := range cases {
		got := colorizeDurationMS(tc.ms, true)
		if !strings.HasPrefix(got, tc.want) {
			t.Fatalf("colorizeDurationMS(%d)=%q want prefix %q", tc.ms, got, tc.want)
		}
		if stripANSI(got) != colorizeDurationMS(tc.ms, false) {
			t.Fatalf("colored and plain output differ for %d", tc.ms)
		}
	}
}
