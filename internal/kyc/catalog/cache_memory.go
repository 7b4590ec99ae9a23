package catalog

import (
	"context"
	"sync"
	"time"

	"storefront/internal/kyc/models"
	"storefront/pkg/platform/sentinel"
)

// InMemoryCache keeps one catalog for ttl.
type InMemoryCache struct {
	mu       sync.RWMutex
	catalog  models.Catalog
	storedAt time.Time
	ttl      time.Duration
	now      func() time.Time
}

func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{ttl: ttl, now: time.Now}
}

func (c *InMemoryCache) Get(_ context.Context) (models.Catalog, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.catalog == nil || c.now().Sub(c.storedAt) >= c.ttl {
		return nil, sentinel.ErrNotFound
	}
	return copyCatalog(c.catalog), nil
}

func (c *InMemoryCache) Put(_ context.Context, catalog models.Catalog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = copyCatalog(catalog)
	c.storedAt = c.now()
	return nil
}

func copyCatalog(in models.Catalog) models.Catalog {
	out := make(models.Catalog, len(in))
	for k, v := range in {
		v.RequiredDocuments = append([]string(nil), v.RequiredDocuments...)
		out[k] = v
	}
	return out
}
