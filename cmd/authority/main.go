package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "storefront/internal/jwt_token"
	"storefront/internal/kyc/models"
	"storefront/internal/platform/config"
	"storefront/internal/platform/httpserver"
	"storefront/internal/platform/kafka"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	"storefront/internal/platform/postgres"
	"storefront/internal/verification/blob"
	"storefront/internal/verification/events"
	verificationHandler "storefront/internal/verification/handler"
	"storefront/internal/verification/service"
	"storefront/internal/verification/store"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/platform/middleware/request"
	"storefront/pkg/platform/middleware/requesttime"
)

const shutdownGrace = 10 * time.Second

func main() {
	devToken := flag.String("dev-token", "", "print a signed access token for `user[:role]` and exit")
	flag.Parse()

	cfg, err := config.LoadAuthority()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New("authority", cfg.Environment)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	if *devToken != "" {
		if err := printDevToken(jwtService, *devToken, cfg.DevTokenTTL); err != nil {
			log.Error("issue dev token", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, log, jwtService); err != nil {
		log.Error("authority stopped", "error", err)
		os.Exit(1)
	}
}

func printDevToken(jwtService *jwttoken.JWTService, subject string, ttl time.Duration) error {
	user, role, _ := strings.Cut(subject, ":")
	token, err := jwtService.GenerateAccessToken(user, role, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

type storage struct {
	store store.Store
	tx    service.StoreTx
	db    *sql.DB
}

func run(cfg *config.Authority, log *slog.Logger, jwtService *jwttoken.JWTService) error {
	ctx := context.Background()

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	blobs, err := openBlobs(cfg, log)
	if err != nil {
		return err
	}

	sink, closeSink, err := openSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()
	publisher := events.NewPublisher(sink,
		events.WithAsyncBuffer(cfg.EventsBuffer),
		events.WithLogger(log),
	)
	defer publisher.Close()

	svc := service.New(st.store, st.tx, blobs,
		service.WithEvents(publisher),
		service.WithMetrics(service.NewMetrics()),
		service.WithLogger(log),
	)

	httpMetrics := metrics.New("authority")
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(request.Recovery(log))
	r.Use(requesttime.Middleware)
	r.Use(httpMetrics.Middleware)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if st.db != nil {
			if err := st.db.PingContext(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	verificationHandler.New(svc, log, jwttoken.NewJWTServiceAdapter(jwtService)).Register(r)

	return httpserver.Run(httpserver.New(cfg.Addr, r), log, shutdownGrace)
}

func openStorage(ctx context.Context, cfg *config.Authority, log *slog.Logger) (storage, error) {
	if cfg.Postgres.URL == "" {
		log.Info("using in-memory submission store")
		mem := store.NewInMemoryStore(models.DefaultCatalog())
		return storage{store: mem, tx: store.NewInMemoryTx(mem)}, nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return storage{}, err
	}
	if err := postgres.Migrate(ctx, db, store.Schema...); err != nil {
		db.Close()
		return storage{}, err
	}
	pg := store.NewPostgres(db)
	if err := pg.SeedTypes(ctx, models.DefaultCatalog()); err != nil {
		db.Close()
		return storage{}, fmt.Errorf("seed verification types: %w", err)
	}
	log.Info("using postgres submission store")
	return storage{store: pg, tx: store.NewPostgresTx(db), db: db}, nil
}

func openBlobs(cfg *config.Authority, log *slog.Logger) (service.Blobs, error) {
	if cfg.Cloudinary.URL == "" {
		log.Info("keeping documents in memory")
		return blob.NewMemoryStore(), nil
	}
	cld, err := blob.NewCloudinary(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
	if err != nil {
		return nil, err
	}
	return cld, nil
}

// openSink returns the event sink and a close func that runs after the
// publisher has drained.
func openSink(ctx context.Context, cfg *config.Authority, log *slog.Logger) (events.Sink, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka disabled, keeping submission events in memory")
		return events.NewMemorySink(), func() {}, nil
	}
	client, err := kafka.New(cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, 1); err != nil {
		client.Close()
		return nil, nil, err
	}
	return events.NewKafkaSink(client, cfg.Kafka.Topic), client.Close, nil
}
