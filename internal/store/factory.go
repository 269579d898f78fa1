package store

import (
	"github.com/redis/go-redis/v9"
)

type Stores struct {
	client *redis.Client
	key    string
}

// NewStores builds the stores backed by client. key names the Redis hash that
// holds every correlation record.
func NewStores(client *redis.Client, key string) *Stores {
	return &Stores{client: client, key: key}
}

func (s *Stores) Correlations() CorrelationStore {
	return newCorrelationStore(s.client, s.key)
}
