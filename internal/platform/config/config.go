// Package config builds process configuration from environment variables so
// main stays lean. Every dependent-store timeout has a non-zero default:
// bounded connect/query timeouts are mandatory, not optional.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server and process level configuration.
type Server struct {
	Addr          string
	Debug         bool
	JWTSigningKey string

	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Kafka    KafkaConfig
	Sweep    SweepConfig

	// RequiredDocumentTypes is the canonical set a driver must have approved
	// before the profile flips to active. Deployment configuration, never
	// hard-coded per-driver logic.
	RequiredDocumentTypes []string
}

// DatabaseConfig covers the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
	QueryTimeout    time.Duration
}

// RedisConfig covers the verification-status cache. Empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StatusTTL    time.Duration
}

// StorageConfig covers the object-store gateway. Empty bucket selects the
// in-memory signer (dev mode).
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	UploadGrantTTL  time.Duration
	ReadGrantTTL    time.Duration
	MaxUploadBytes  int64
	TenantNamespace string
}

// KafkaConfig covers the expiry-notification producer. Empty brokers disable
// the producer (notifications land in the in-memory sink).
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// SweepConfig covers the scheduled expiry sweeper.
type SweepConfig struct {
	Interval        time.Duration
	ExpiryLookahead time.Duration
	BatchLimit      int
}

// FromEnv builds a Server config from FLEETDOCS_* environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envString("FLEETDOCS_ADDR", ":8080"),
		Debug:         envBool("FLEETDOCS_DEBUG", false),
		JWTSigningKey: envString("FLEETDOCS_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Database: DatabaseConfig{
			URL:             envString("FLEETDOCS_DATABASE_URL", ""),
			MaxOpenConns:    envInt("FLEETDOCS_DB_MAX_OPEN_CONNS", 16),
			MaxIdleConns:    envInt("FLEETDOCS_DB_MAX_IDLE_CONNS", 4),
			ConnMaxLifetime: envDuration("FLEETDOCS_DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnectTimeout:  envDuration("FLEETDOCS_DB_CONNECT_TIMEOUT", 5*time.Second),
			QueryTimeout:    envDuration("FLEETDOCS_DB_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          envString("FLEETDOCS_REDIS_URL", ""),
			PoolSize:     envInt("FLEETDOCS_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("FLEETDOCS_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("FLEETDOCS_REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  envDuration("FLEETDOCS_REDIS_READ_TIMEOUT", 1*time.Second),
			WriteTimeout: envDuration("FLEETDOCS_REDIS_WRITE_TIMEOUT", 1*time.Second),
			StatusTTL:    envDuration("FLEETDOCS_REDIS_STATUS_TTL", 2*time.Minute),
		},
		Storage: StorageConfig{
			Bucket:          envString("FLEETDOCS_S3_BUCKET", ""),
			Region:          envString("FLEETDOCS_S3_REGION", "eu-central-1"),
			Endpoint:        envString("FLEETDOCS_S3_ENDPOINT", ""),
			UploadGrantTTL:  envDuration("FLEETDOCS_UPLOAD_GRANT_TTL", 15*time.Minute),
			ReadGrantTTL:    envDuration("FLEETDOCS_READ_GRANT_TTL", 60*time.Minute),
			MaxUploadBytes:  envInt64("FLEETDOCS_MAX_UPLOAD_BYTES", 10<<20),
			TenantNamespace: envString("FLEETDOCS_TENANT_NAMESPACE", ""),
		},
		Kafka: KafkaConfig{
			Brokers: envList("FLEETDOCS_KAFKA_BROKERS", nil),
			Topic:   envString("FLEETDOCS_KAFKA_TOPIC", "driver-document-expiry"),
		},
		Sweep: SweepConfig{
			Interval:        envDuration("FLEETDOCS_SWEEP_INTERVAL", 24*time.Hour),
			ExpiryLookahead: envDuration("FLEETDOCS_SWEEP_LOOKAHEAD", 30*24*time.Hour),
			BatchLimit:      envInt("FLEETDOCS_SWEEP_BATCH_LIMIT", 500),
		},
		RequiredDocumentTypes: envList("FLEETDOCS_REQUIRED_DOCUMENT_TYPES",
			[]string{"license", "insurance", "registration", "profile_photo"}),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
