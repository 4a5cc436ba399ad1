package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps plain keys as strings and scoped keys as hashes.
// Every write refreshes the key TTL.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	logging.Get(logging.CategorySession).Info("Connected to redis at %s (db %d)", addr, db)
	return NewRedisStore(client, ttl), nil
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) ReadAllFor(ctx context.Context, userPrincipal, scope, key string) (map[string][]byte, error) {
	k := ScopedKey(userPrincipal, scope, key)
	values, err := r.client.HGetAll(ctx, k).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", k, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string][]byte, len(values))
	for f, v := range values {
		out[f] = []byte(v)
	}
	return out, nil
}

func (r *RedisStore) WriteAllFor(ctx context.Context, userPrincipal, scope, key string, fields map[string][]byte) error {
	if len(fields) == 0 {
		return nil
	}
	k := ScopedKey(userPrincipal, scope, key)
	args := make(map[string]interface{}, len(fields))
	for f, v := range fields {
		args[f] = v
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, args)
		if r.ttl > 0 {
			pipe.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("hset %s: %w", k, err)
	}
	return nil
}

func (r *RedisStore) Read(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisStore) WriteAll(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) RemoveTag(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
