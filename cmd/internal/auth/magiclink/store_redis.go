package magiclink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps magic links in Redis. Expiry is enforced by the key TTL, so there is
// nothing to purge; the now argument only anchors the TTL on Issue.
type RedisStore struct {
	settings

	client redis.UniversalClient
}

// NewRedisStore constructs a RedisStore. WithHashKey is required.
func NewRedisStore(client redis.UniversalClient, opts ...Option) (*RedisStore, error) {
	s, err := newSettings(opts)
	if err != nil {
		return nil, err
	}
	if client == nil || len(s.hashKey) == 0 {
		return nil, ErrInvalidInput
	}
	return &RedisStore{settings: s, client: client}, nil
}

// Close is a no-op; the app owns the client.
func (s *RedisStore) Close() error { return nil }

// Issue stores email under the hashed token with a TTL.
func (s *RedisStore) Issue(ctx context.Context, _ time.Time, email string) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrInvalidInput
	}
	if strings.TrimSpace(email) == "" {
		return "", ErrInvalidInput
	}

	raw, key, err := s.newToken()
	if err != nil {
		return "", err
	}

	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, email, s.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		// 256-bit tokens do not collide; an existing key means the RNG is broken.
		return "", errors.New("magiclink: token collision")
	}
	return raw, nil
}

// Consume atomically fetches and deletes the key (GETDEL, Redis >= 6.2).
func (s *RedisStore) Consume(ctx context.Context, _ time.Time, raw string) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrInvalidInput
	}
	raw, ok := normalizeRawToken(raw)
	if !ok {
		return "", ErrInvalidToken
	}

	email, err := s.client.GetDel(ctx, s.keyPrefix+s.storageKey(raw)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}
