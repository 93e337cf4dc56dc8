package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the session as two Redis string keys.
//
// Keys are "<prefix>:access_token" and "<prefix>:refresh_token". Writes go through a
// MULTI/EXEC pipeline so both keys change together; reads use a single MGET.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a [RedisStore]. prefix namespaces the two keys; ttl bounds how
// long a saved pair survives (0 keeps it until cleared).
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisStore) accessKey() string {
	return namespaced(s.prefix, AccessTokenKey)
}

func (s *RedisStore) refreshKey() string {
	return namespaced(s.prefix, RefreshTokenKey)
}

// Load reads both keys in one MGET round-trip.
//
//	Performance: 1 Redis command.
func (s *RedisStore) Load(ctx context.Context) (Session, error) {
	values, err := s.redis.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(values) != 2 {
		return Session{}, fmt.Errorf("%w: unexpected MGET width %d", ErrStoreCorrupt, len(values))
	}

	access, err := stringValue(values[0])
	if err != nil {
		return Session{}, err
	}
	refresh, err := stringValue(values[1])
	if err != nil {
		return Session{}, err
	}

	return Session{AccessToken: access, RefreshToken: refresh}, nil
}

// Save replaces both tokens inside one transaction. An empty token deletes its key.
//
//	Performance: 1 MULTI/EXEC round-trip.
func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.setOrDelete(ctx, pipe, s.accessKey(), sess.AccessToken)
		s.setOrDelete(ctx, pipe, s.refreshKey(), sess.RefreshToken)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear deletes both keys. Deleting missing keys is not an error.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.accessKey(), s.refreshKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) setOrDelete(ctx context.Context, pipe redis.Pipeliner, key, value string) {
	if value == "" {
		pipe.Del(ctx, key)
		return
	}
	pipe.Set(ctx, key, value, s.ttl)
}

func stringValue(v interface{}) (string, error) {
	switch typed := v.(type) {
	case nil:
		return "", nil
	case string:
		return typed, nil
	default:
		return "", fmt.Errorf("%w: unexpected value type %T", ErrStoreCorrupt, v)
	}
}
