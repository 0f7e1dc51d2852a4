package kvstore

import (
	"context"
	"fmt"

	"github.com/wonny/arcade/pkg/redis"
)

// Redis is a Store backed by a shared Redis instance, so a runtime in
// another process can exchange keys with the host
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis creates a Redis-backed store. Keys become "<prefix>:store:<key>".
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return "store:" + k
	}
	return fmt.Sprintf("%s:store:%s", r.prefix, k)
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Redis().Get(ctx, r.key(key)).Result()
	if redis.IsNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store get %s: %w", key, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Redis().Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("store set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}

	if err := r.client.Redis().Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("store delete: %w", err)
	}
	return nil
}
