package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type correlationStore struct {
	client *redis.Client
	key    string
}

func newCorrelationStore(client *redis.Client, key string) CorrelationStore {
	return &correlationStore{client: client, key: key}
}

func (s *correlationStore) Get(ctx context.Context, id string) (string, error) {
	value, err := s.client.HGet(ctx, s.key, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("hget %s: %w", id, err)
	}
	return value, nil
}

func (s *correlationStore) Set(ctx context.Context, id, value string) error {
	if err := s.client.HSet(ctx, s.key, id, value).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", id, err)
	}
	return nil
}
