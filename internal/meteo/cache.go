package meteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend-journeylog/internal/journey"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 3 * time.Hour

// Cache keeps forecast snapshots in redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns nil, nil on a cache miss.
func (c *Cache) Get(ctx context.Context, key string) (*journey.Meteo, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var m journey.Meteo
	if err := json.Unmarshal(val, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling cached meteo %s: %w", key, err)
	}
	return &m, nil
}

func (c *Cache) Set(ctx context.Context, key string, m journey.Meteo) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling meteo %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
