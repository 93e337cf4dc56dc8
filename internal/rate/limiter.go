package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
)

// Config tunes a Limiter. Zero values take the defaults of 5 attempts per
// 15 minutes.
type Config struct {
	Prefix           string
	MaxLoginAttempts int
	Window           time.Duration
	EnableIPThrottle bool
}

// Limiter counts failed logins per identifier and, optionally, per client address.
type Limiter struct {
	rdb    redis.UniversalClient
	prefix string
	max    int64
	window time.Duration
	perIP  bool
}

// New returns a Limiter storing its counters in rdb.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	l := &Limiter{
		rdb:    rdb,
		prefix: cfg.Prefix,
		max:    int64(cfg.MaxLoginAttempts),
		window: cfg.Window,
		perIP:  cfg.EnableIPThrottle,
	}
	if l.max <= 0 {
		l.max = defaultMaxAttempts
	}
	if l.window <= 0 {
		l.window = defaultWindow
	}
	return l
}

// CheckLogin returns ErrRateLimited when the identifier or ip has used its budget
// of failed attempts in the current window. Both counters are read in one MGET.
func (l *Limiter) CheckLogin(ctx context.Context, identifier, ip string) error {
	vals, err := l.rdb.MGet(ctx, l.keys(identifier, ip)...).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil && n >= l.max {
			return ErrRateLimited
		}
	}
	return nil
}

// RecordFailure counts one failed login against every counter CheckLogin reads.
// It returns ErrRateLimited when this attempt used up a budget.
func (l *Limiter) RecordFailure(ctx context.Context, identifier, ip string) error {
	keys := l.keys(identifier, ip)

	incrs := make([]*redis.IntCmd, len(keys))
	if _, err := l.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			incrs[i] = p.Incr(ctx, k)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	limited := false
	for i, cmd := range incrs {
		n := cmd.Val()
		// The window starts at the first failure and is not extended.
		if n == 1 {
			if err := l.rdb.Expire(ctx, keys[i], l.window).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}
		if n >= l.max {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the identifier counter after a successful login. The
// per-address counter is left to expire.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	if err := l.rdb.Del(ctx, l.userKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the failed-attempt count of identifier in the current window.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	n, err := l.rdb.Get(ctx, l.userKey(identifier)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return max(n, 0), nil
}

func (l *Limiter) keys(identifier, ip string) []string {
	keys := []string{l.userKey(identifier)}
	if l.perIP && ip != "" {
		keys = append(keys, l.namespaced("login:ip:"+ip))
	}
	return keys
}

func (l *Limiter) userKey(identifier string) string {
	return l.namespaced("login:u:" + strings.ToLower(strings.TrimSpace(identifier)))
}

func (l *Limiter) namespaced(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}
