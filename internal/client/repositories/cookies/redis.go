package cookies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Repository = (*RedisRepository)(nil)

// RedisRepository keeps one key per cookie under prefix. Keys carry the
// cookie's expiry as their TTL, so Redis drops them on time.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisRepository(rdb redis.UniversalClient, prefix string) *RedisRepository {
	return &RedisRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRepository) key(name string) string {
	return r.prefix + ":cookie:" + name
}

func (r *RedisRepository) GetMany(ctx context.Context, names []string) (map[string]*http.Cookie, error) {
	out := make(map[string]*http.Cookie, len(names))
	if len(names) == 0 {
		return out, nil
	}

	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = r.key(n)
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}
	now := r.now()
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode cookie[%s]: %w", names[i], err)
		}
		if rec.expired(now) {
			continue
		}
		out[names[i]] = rec.cookie()
	}
	return out, nil
}

// SetMany writes all cookies in one MULTI/EXEC. A cookie whose expiry has
// already passed is deleted instead.
func (r *RedisRepository) SetMany(ctx context.Context, cookies []*http.Cookie) error {
	now := r.now()
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range cookies {
			rec := toRecord(c)
			if rec.expired(now) {
				pipe.Del(ctx, r.key(c.Name))
				continue
			}
			payload, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			var ttl time.Duration
			if !rec.Expires.IsZero() {
				ttl = rec.Expires.Sub(now)
			}
			pipe.Set(ctx, r.key(c.Name), payload, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set cookies: %w", err)
	}
	return nil
}

func (r *RedisRepository) DeleteMany(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = r.key(n)
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cookies: %w", err)
	}
	return nil
}

func (r *RedisRepository) List(ctx context.Context) ([]*http.Cookie, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, r.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list cookies: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to list cookies: %w", err)
	}

	now := r.now()
	var out []*http.Cookie
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		if !rec.expired(now) {
			out = append(out, rec.cookie())
		}
	}
	return out, nil
}
