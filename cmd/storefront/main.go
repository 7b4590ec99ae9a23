package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "storefront/internal/jwt_token"
	"storefront/internal/kyc/catalog"
	"storefront/internal/kyc/dashboard"
	"storefront/internal/kyc/form"
	"storefront/internal/kyc/remote"
	"storefront/internal/platform/config"
	"storefront/internal/platform/httpserver"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	"storefront/internal/platform/redis"
	storefrontHandler "storefront/internal/storefront/handler"
	"storefront/pkg/platform/circuit"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/platform/middleware/request"
	"storefront/pkg/platform/middleware/requesttime"
)

const (
	shutdownGrace          = 10 * time.Second
	sessionCleanupInterval = time.Minute
)

func main() {
	cfg, err := config.LoadStorefront()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New("storefront", cfg.Environment)

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Storefront, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	authority := remote.New(cfg.AuthorityURL,
		remote.WithTimeout(cfg.AuthorityTimeout),
		remote.WithBreaker(circuit.New("authority")),
		remote.WithLogger(log),
		remote.WithMetrics(remote.NewMetrics()),
	)

	var cache catalog.Cache = catalog.NewInMemoryCache(cfg.CatalogCacheTTL)
	if rdb != nil {
		cache = catalog.NewRedisCache(rdb.Client, cfg.CatalogCacheTTL)
	}
	types := catalog.New(authority,
		catalog.WithCache(cache),
		catalog.WithLogger(log),
		catalog.WithMetrics(catalog.NewMetrics()),
	)

	sessions := storefrontHandler.NewSessions(authority, types,
		storefrontHandler.WithIdleTTL(cfg.SessionIdleTTL),
		storefrontHandler.WithSessionLogger(log),
		storefrontHandler.WithDashboardOptions(
			dashboard.WithFormOptions(form.WithMetrics(form.NewMetrics())),
		),
	)
	defer sessions.Close()
	go func() {
		_ = sessions.StartCleanup(ctx, sessionCleanupInterval)
	}()

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	httpMetrics := metrics.New("storefront")
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(request.Recovery(log))
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.Middleware)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			if err := rdb.Health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	storefrontHandler.New(sessions, log, jwttoken.NewJWTServiceAdapter(jwtService)).Register(r)

	return httpserver.Run(httpserver.New(cfg.Addr, r), log, shutdownGrace)
}
