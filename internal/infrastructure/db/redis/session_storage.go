package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStorage keeps session keys in Redis so several terminals or hosts
// can share one login. Key format: h2trade:<profile>:<key>
type SessionStorage struct {
	client  redis.Cmdable
	profile string
	ttl     time.Duration
}

// NewSessionStorage wraps client. A zero ttl keeps keys until cleared.
func NewSessionStorage(client redis.Cmdable, profile string, ttl time.Duration) *SessionStorage {
	return &SessionStorage{client: client, profile: profile, ttl: ttl}
}

func (s *SessionStorage) Read(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis session read: %w", err)
	}
	return v, true, nil
}

func (s *SessionStorage) Write(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis session write: %w", err)
	}
	return nil
}

func (s *SessionStorage) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis session clear: %w", err)
	}
	return nil
}

func (s *SessionStorage) key(k string) string {
	return fmt.Sprintf("h2trade:%s:%s", s.profile, k)
}
