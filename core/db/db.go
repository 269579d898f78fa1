package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DB wraps the Redis client that backs the correlation store.
type DB struct {
	client *redis.Client
	key    string
}

type Config struct {
	URL string

	// Key is the hash all correlation records live under.
	Key string
}

// New connects to Redis and verifies the connection with a PING.
func New(ctx context.Context, cfg Config) (*DB, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &DB{client: client, key: cfg.Key}, nil
}

// Client returns the underlying Redis client.
func (d *DB) Client() *redis.Client {
	return d.client
}

// Key returns the configured hash key.
func (d *DB) Key() string {
	return d.key
}

// Close closes the Redis connection pool.
func (d *DB) Close() error {
	return d.client.Close()
}
