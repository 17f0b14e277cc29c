package magiclink

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the process-local Store.
// It is not shared between instances: a link issued by one process cannot be redeemed
// on another. Use PostgresStore or RedisStore behind a load balancer.
type MemoryStore struct {
	settings

	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore constructs a MemoryStore. Without WithHashKey a random per-process key is used.
func NewMemoryStore(opts ...Option) (*MemoryStore, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	if len(s.hashKey) == 0 {
		s.hashKey = make([]byte, 32)
		if _, err := rand.Read(s.hashKey); err != nil {
			return nil, err
		}
	}
	return &MemoryStore{
		settings: s,
		records:  make(map[string]Record),
	}, nil
}

// Close closes the store (noop for in-memory).
func (m *MemoryStore) Close() error { return nil }

// Issue records a token for email and purges expired records.
func (m *MemoryStore) Issue(ctx context.Context, now time.Time, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, key, err := m.newToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeExpiredLocked(now)
	m.records[key] = Record{Email: email, ExpiresAt: now.Add(m.ttl)}
	return raw, nil
}

// Consume deletes the record before returning its email, so a token succeeds at most once.
func (m *MemoryStore) Consume(ctx context.Context, now time.Time, raw string) (string, error) {
	raw, ok := normalizeRawToken(raw)
	if !ok {
		return "", ErrInvalidToken
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := m.storageKey(raw)

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return "", ErrInvalidToken
	}
	delete(m.records, key)

	if rec.Expired(now) {
		return "", ErrInvalidToken
	}
	return rec.Email, nil
}

// Len returns the number of live or not-yet-purged records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryStore) purgeExpiredLocked(now time.Time) {
	for k, rec := range m.records {
		if rec.Expired(now) {
			delete(m.records, k)
		}
	}
}
