package idempotency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewStore(rdb redis.Cmdable, prefix string, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl, prefix: prefix}
}

// Key joins parts under the store prefix, e.g. "idem:order.refunds:0:42".
func (s *Store) Key(parts ...any) string {
	ss := make([]string, 0, len(parts)+1)
	ss = append(ss, s.prefix)
	for _, p := range parts {
		ss = append(ss, fmt.Sprint(p))
	}
	return strings.Join(ss, ":")
}

// Seen marks key as processed and reports whether it already was.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// Acquire is the inverse view of Seen: true when the caller is first.
func (s *Store) Acquire(ctx context.Context, key string) (bool, error) {
	seen, err := s.Seen(ctx, key)
	if err != nil {
		return false, err
	}
	return !seen, nil
}

// Release forgets key so the next Acquire succeeds again.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
