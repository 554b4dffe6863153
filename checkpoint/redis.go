package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "demandcast:checkpoint"

// Redis stores checkpoints as string values keyed by prefix and destination
type Redis struct {
	client *redis.Client
	prefix string

	// TTL expires checkpoints after the duration. Zero keeps them.
	TTL time.Duration
}

// NewRedis connects to the redis url and verifies the connection with a ping
func NewRedis(ctx context.Context, redisURL, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse redis url, %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to connect to redis, %w", err)
	}
	return NewRedisFromClient(client, prefix), nil
}

func NewRedisFromClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(dest string) string {
	return fmt.Sprintf("%s:%s", r.prefix, dest)
}

func (r *Redis) Write(ctx context.Context, blob []byte, dest string) error {
	if dest == "" {
		return ErrEmptyDest
	}
	if err := r.client.Set(ctx, r.key(dest), blob, r.TTL).Err(); err != nil {
		return fmt.Errorf("unable to write checkpoint to redis, %w", err)
	}
	return nil
}

func (r *Redis) Read(ctx context.Context, dest string) ([]byte, error) {
	if dest == "" {
		return nil, ErrEmptyDest
	}
	blob, err := r.client.Get(ctx, r.key(dest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s, %w", r.key(dest), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read checkpoint from redis, %w", err)
	}
	return blob, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
