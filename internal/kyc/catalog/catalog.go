// Package catalog loads the verification type catalog with a fail-soft policy:
// any failure yields an empty catalog instead of an error.
package catalog

import (
	"context"
	"errors"
	"log/slog"

	"storefront/internal/kyc/models"
	"storefront/pkg/platform/sentinel"
	"storefront/pkg/requestcontext"
)

// TypeSource fetches the catalog from the authority.
type TypeSource interface {
	ListTypes(ctx context.Context, token string) (models.Catalog, error)
}

// Cache stores the last good catalog. Get returns sentinel.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context) (models.Catalog, error)
	Put(ctx context.Context, catalog models.Catalog) error
}

// Service is the TypeCatalog. It never mutates the catalog it returns to
// callers after handing it out.
type Service struct {
	source  TypeSource
	cache   Cache
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(source TypeSource, opts ...Option) *Service {
	s := &Service{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load returns the catalog keyed by variant. On any failure it logs and
// returns an empty, non-nil catalog.
func (s *Service) Load(ctx context.Context, token string) models.Catalog {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		switch {
		case err == nil:
			s.metrics.cacheHit()
			return cached
		case !errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "catalog cache read failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}

	fetched, err := s.source.ListTypes(ctx, token)
	if err != nil {
		s.metrics.fallback()
		s.logger.WarnContext(ctx, "verification type catalog unavailable, using empty catalog",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return models.Catalog{}
	}

	catalog := fetched.Normalize()
	if s.cache != nil && len(catalog) > 0 {
		if err := s.cache.Put(ctx, catalog); err != nil {
			s.logger.WarnContext(ctx, "catalog cache write failed", "error", err)
		}
	}
	return catalog
}
