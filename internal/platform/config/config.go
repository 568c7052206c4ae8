package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	liststr "vetting/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	LogLevel        string
	LogFormat       string

	// RateLimit caps provider API requests per client IP per RateWindow.
	// Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Database is the Postgres connection. An empty URL selects in-memory stores.
type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Redis backs the NPI verification cache. An empty URL selects the
// in-process cache.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka carries credentialing events. No brokers means events are only
// written to the outbox (or logged, without a database).
type Kafka struct {
	Brokers       []string
	Topic         string
	RelayInterval time.Duration
	RelayBatch    int
}

// Storage selects the Document Store Adapter backend: memory, minio or s3.
type Storage struct {
	Backend        string
	Bucket         string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	S3Region       string
	S3AccessKeyID  string
	S3SecretKey    string
	S3EndpointURL  string
}

// NPIRegistry configures the NPPES client.
type NPIRegistry struct {
	BaseURL      string
	Timeout      time.Duration
	RatePerSec   float64
	RateBurst    int
	BreakerLimit int
	BreakerWait  time.Duration
}

// Exclusion configures the screening sources. LEIEFile, when set, is an
// OIG LEIE CSV export loaded into an in-memory list source.
type Exclusion struct {
	OIGURL        string
	SAMURL        string
	SAMAPIKey     string
	LEIEFile      string
	SourceTimeout time.Duration
}

// Policy holds the credentialing constants.
type Policy struct {
	ExpiringSoonLead    time.Duration
	ExclusionFreshness  time.Duration
	MaxUploadBytes      int64
	AllowedContentTypes []string
	RequiredDocTypes    []string
	SweepInterval       time.Duration
	SweepConcurrency    int
	AutoVerify          bool
}

// Auth verifies reviewer bearer tokens.
type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
}

// Tracing toggles the OTLP exporter.
type Tracing struct {
	Enabled     bool
	Protocol    string
	ServiceName string
	SampleRatio float64
}

// Config is the full process configuration.
type Config struct {
	Server      Server
	Database    Database
	Redis       Redis
	Kafka       Kafka
	Storage     Storage
	NPIRegistry NPIRegistry
	Exclusion   Exclusion
	Policy      Policy
	Auth        Auth
	Tracing     Tracing
}

// Load reads configuration from the environment, after loading a .env file
// when one exists. Real environment variables take precedence. Unparseable
// values fall back to their defaults and are reported as problems so main can
// log them.
func Load() (Config, []string) {
	_ = godotenv.Load()

	e := &env{}
	cfg := Config{
		Server: Server{
			Addr:            e.str("SERVER_ADDR", ":8080"),
			ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     e.list("CORS_ALLOWED_ORIGINS", nil),
			LogLevel:        e.str("LOG_LEVEL", "info"),
			LogFormat:       e.str("LOG_FORMAT", "json"),
			RateLimit:       e.int("RATE_LIMIT_REQUESTS", 120),
			RateWindow:      e.duration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Database: Database{
			URL:             e.str("DATABASE_URL", ""),
			MaxOpenConns:    e.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    e.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: Redis{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:       e.list("KAFKA_BROKERS", nil),
			Topic:         e.str("KAFKA_TOPIC", "credentialing.events"),
			RelayInterval: e.duration("OUTBOX_RELAY_INTERVAL", time.Second),
			RelayBatch:    e.int("OUTBOX_RELAY_BATCH", 100),
		},
		Storage: Storage{
			Backend:        e.str("STORAGE_BACKEND", "memory"),
			Bucket:         e.str("STORAGE_BUCKET", "credential-documents"),
			MinIOEndpoint:  e.str("MINIO_ENDPOINT", ""),
			MinIOAccessKey: e.str("MINIO_ACCESS_KEY", ""),
			MinIOSecretKey: e.str("MINIO_SECRET_KEY", ""),
			MinIOUseSSL:    e.bool("MINIO_USE_SSL", false),
			S3Region:       e.str("S3_REGION", "us-east-1"),
			S3AccessKeyID:  e.str("S3_ACCESS_KEY_ID", ""),
			S3SecretKey:    e.str("S3_SECRET_ACCESS_KEY", ""),
			S3EndpointURL:  e.str("S3_ENDPOINT_URL", ""),
		},
		NPIRegistry: NPIRegistry{
			BaseURL:      e.str("NPI_REGISTRY_URL", "https://npiregistry.cms.hhs.gov/api/"),
			Timeout:      e.duration("NPI_REGISTRY_TIMEOUT", 5*time.Second),
			RatePerSec:   e.float("NPI_REGISTRY_RATE", 5),
			RateBurst:    e.int("NPI_REGISTRY_BURST", 5),
			BreakerLimit: e.int("NPI_REGISTRY_BREAKER_FAILURES", 5),
			BreakerWait:  e.duration("NPI_REGISTRY_BREAKER_COOLDOWN", 30*time.Second),
		},
		Exclusion: Exclusion{
			OIGURL:        e.str("EXCLUSION_OIG_URL", ""),
			SAMURL:        e.str("EXCLUSION_SAM_URL", ""),
			SAMAPIKey:     e.str("EXCLUSION_SAM_API_KEY", ""),
			LEIEFile:      e.str("EXCLUSION_LEIE_FILE", ""),
			SourceTimeout: e.duration("EXCLUSION_SOURCE_TIMEOUT", 5*time.Second),
		},
		Policy: Policy{
			ExpiringSoonLead:    e.duration("EXPIRING_SOON_LEAD", 720*time.Hour),
			ExclusionFreshness:  e.duration("EXCLUSION_FRESHNESS", 720*time.Hour),
			MaxUploadBytes:      int64(e.int("MAX_UPLOAD_BYTES", 10<<20)),
			AllowedContentTypes: e.foldedList("ALLOWED_CONTENT_TYPES", []string{"application/pdf", "image/png", "image/jpeg"}),
			RequiredDocTypes:    e.foldedList("REQUIRED_DOCUMENT_TYPES", []string{"license", "liability_insurance"}),
			SweepInterval:       e.duration("SWEEP_INTERVAL", 15*time.Minute),
			SweepConcurrency:    e.int("SWEEP_CONCURRENCY", 8),
			AutoVerify:          e.bool("AUTO_VERIFY", true),
		},
		Auth: Auth{
			JWTSigningKey: e.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     e.str("JWT_ISSUER", "vetting-admin"),
		},
		Tracing: Tracing{
			Enabled:     e.bool("TRACING_ENABLED", false),
			Protocol:    e.str("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			ServiceName: e.str("OTEL_SERVICE_NAME", "vetting"),
			SampleRatio: e.float("TRACING_SAMPLE_RATIO", 1.0),
		},
	}
	return cfg, e.problems
}

type env struct {
	problems []string
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// foldedList is list for case-insensitive values such as content types and
// document type names.
func (e *env) foldedList(key string, def []string) []string {
	if v := liststr.SplitList(os.Getenv(key)); len(v) > 0 {
		return v
	}
	return def
}

func (e *env) list(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return liststr.DedupeAndTrim(strings.Split(v, ","))
}

func (e *env) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(key, v, def)
		return def
	}
	return i
}

func (e *env) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key, v, def)
		return def
	}
	return f
}

func (e *env) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.invalid(key, v, def)
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		e.invalid(key, v, def)
		return def
	}
	return d
}

func (e *env) invalid(key, value string, def any) {
	e.problems = append(e.problems, fmt.Sprintf("%s=%q is invalid, using %v", key, value, def))
}
