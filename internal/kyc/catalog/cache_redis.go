package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/kyc/models"
	"storefront/pkg/platform/sentinel"
)

// RedisCacheKey is where the catalog is stored.
const RedisCacheKey = "storefront:kyc:catalog"

// RedisCache shares the catalog across storefront instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) (models.Catalog, error) {
	raw, err := c.client.Get(ctx, RedisCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get catalog: %w", err)
	}
	var catalog models.Catalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return catalog, nil
}

func (c *RedisCache) Put(ctx context.Context, catalog models.Catalog) error {
	raw, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := c.client.Set(ctx, RedisCacheKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set catalog: %w", err)
	}
	return nil
}
