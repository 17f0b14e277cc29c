package magiclink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// runStoreContract exercises behaviour every Store must share.
// expire returns a clock value past the TTL of anything issued at base (and advances any
// server-side clock the store depends on).
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store, expire func(base time.Time) time.Time) {
	t.Helper()

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("issue then consume once", func(t *testing.T) {
		s := newStore(t)

		tok, err := s.Issue(ctx, base, "jane@fund.com")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if len(tok) < 43 {
			t.Fatalf("token too short: %d", len(tok))
		}

		email, err := s.Consume(ctx, base.Add(time.Minute), tok)
		if err != nil {
			t.Fatalf("Consume: %v", err)
		}
		if email != "jane@fund.com" {
			t.Fatalf("email=%q", email)
		}

		if _, err := s.Consume(ctx, base.Add(2*time.Minute), tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("second consume err=%v want ErrInvalidToken", err)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		s := newStore(t)
		for _, tok := range []string{"", "short", "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"} {
			if _, err := s.Consume(ctx, base, tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("Consume(%q) err=%v want ErrInvalidToken", tok, err)
			}
		}
	})

	t.Run("tokens are distinct", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Issue(ctx, base, "jane@fund.com")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		b, err := s.Issue(ctx, base, "jane@fund.com")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if a == b {
			t.Fatalf("expected distinct tokens")
		}
		// Both remain independently redeemable.
		for _, tok := range []string{a, b} {
			if _, err := s.Consume(ctx, base, tok); err != nil {
				t.Fatalf("Consume: %v", err)
			}
		}
	})

	t.Run("expired", func(t *testing.T) {
		s := newStore(t)
		tok, err := s.Issue(ctx, base, "jane@fund.com")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		later := expire(base)
		if _, err := s.Consume(ctx, later, tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expired consume err=%v want ErrInvalidToken", err)
		}
	})

	t.Run("empty email", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Issue(ctx, base, "  "); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("err=%v want ErrInvalidInput", err)
		}
	})

	t.Run("concurrent consume has one winner", func(t *testing.T) {
		s := newStore(t)
		tok, err := s.Issue(ctx, base, "jane@fund.com")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Consume(ctx, base, tok); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := wins.Load(); got != 1 {
			t.Fatalf("winners=%d want 1", got)
		}
	})
}
