package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Server captures HTTP server level configuration shared by both binaries.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	Redis         RedisConfig
	Postgres      PostgresConfig
	Kafka         KafkaConfig
}

// Storefront configures the storefront backend-for-frontend.
type Storefront struct {
	Server
	AuthorityURL     string
	AuthorityTimeout time.Duration
	CatalogCacheTTL  time.Duration
	SessionIdleTTL   time.Duration
}

// Authority configures the verification authority.
type Authority struct {
	Server
	Cloudinary   CloudinaryConfig
	DevTokenTTL  time.Duration
	EventsBuffer int
}

// RedisConfig holds connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds connection settings. An empty URL selects in-memory stores.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig holds broker settings. Empty brokers disable event publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// CloudinaryConfig selects the document blob store. An empty URL keeps documents in memory.
type CloudinaryConfig struct {
	URL    string
	Folder string
}

// IsProduction reports whether the process runs with production settings.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// DefaultJWTSigningKey is only acceptable outside production.
const DefaultJWTSigningKey = "dev-secret-key-change-in-production"

func newViper() *viper.Viper {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_SIGNING_KEY", DefaultJWTSigningKey)
	v.SetDefault("JWT_ISSUER", "storefront")
	v.SetDefault("JWT_AUDIENCE", "storefront")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 2)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("KAFKA_TOPIC", "kyc.submissions")
	v.AutomaticEnv()
	return v
}

func loadServer(v *viper.Viper, addrKey, defaultAddr string) (Server, error) {
	v.SetDefault(addrKey, defaultAddr)
	s := Server{
		Addr:          v.GetString(addrKey),
		Environment:   v.GetString("APP_ENV"),
		JWTSigningKey: v.GetString("JWT_SIGNING_KEY"),
		JWTIssuer:     v.GetString("JWT_ISSUER"),
		JWTAudience:   v.GetString("JWT_AUDIENCE"),
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
	}
	if s.IsProduction() && s.JWTSigningKey == DefaultJWTSigningKey {
		return Server{}, fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	return s, nil
}

// LoadStorefront reads storefront configuration from the environment.
func LoadStorefront() (*Storefront, error) {
	v := newViper()
	v.SetDefault("AUTHORITY_URL", "http://localhost:8081")
	v.SetDefault("AUTHORITY_TIMEOUT", 10*time.Second)
	v.SetDefault("KYC_CATALOG_CACHE_TTL", 5*time.Minute)
	v.SetDefault("SESSION_IDLE_TTL", 30*time.Minute)

	server, err := loadServer(v, "STOREFRONT_ADDR", ":8080")
	if err != nil {
		return nil, err
	}
	cfg := &Storefront{
		Server:           server,
		AuthorityURL:     strings.TrimRight(v.GetString("AUTHORITY_URL"), "/"),
		AuthorityTimeout: v.GetDuration("AUTHORITY_TIMEOUT"),
		CatalogCacheTTL:  v.GetDuration("KYC_CATALOG_CACHE_TTL"),
		SessionIdleTTL:   v.GetDuration("SESSION_IDLE_TTL"),
	}
	if cfg.AuthorityURL == "" {
		return nil, fmt.Errorf("AUTHORITY_URL is required")
	}
	return cfg, nil
}

// LoadAuthority reads verification authority configuration from the environment.
func LoadAuthority() (*Authority, error) {
	v := newViper()
	v.SetDefault("CLOUDINARY_FOLDER", "kyc-documents")
	v.SetDefault("DEV_TOKEN_TTL", time.Hour)
	v.SetDefault("EVENTS_BUFFER", 256)

	server, err := loadServer(v, "AUTHORITY_ADDR", ":8081")
	if err != nil {
		return nil, err
	}
	return &Authority{
		Server: server,
		Cloudinary: CloudinaryConfig{
			URL:    v.GetString("CLOUDINARY_URL"),
			Folder: v.GetString("CLOUDINARY_FOLDER"),
		},
		DevTokenTTL:  v.GetDuration("DEV_TOKEN_TTL"),
		EventsBuffer: v.GetInt("EVENTS_BUFFER"),
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
