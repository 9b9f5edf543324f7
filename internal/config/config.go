package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates the settings of every binary in the repository. Each
// binary calls Load and checks only the sections it needs.
type Config struct {
	Database  DatabaseConfig
	HTTP      HTTPConfig
	Kafka     KafkaConfig
	Digest    DigestConfig
	Telemetry TelemetryConfig
	Logging   LoggingConfig
}

type DatabaseConfig struct {
	URL             string
	QueryTimeout    time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type HTTPConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// KafkaConfig is empty when no brokers are configured; the digest
// binaries refuse to start in that case.
type KafkaConfig struct {
	Brokers []string
}

type DigestConfig struct {
	Topic      string
	GroupID    string
	Interval   time.Duration
	WebhookURL string
}

type TelemetryConfig struct {
	ServiceVersion string
	TracingEnabled bool
	OTLPEndpoint   string
}

type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultQueryTimeout    = 5 * time.Second
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultMigrationsPath  = "file://migrations"
	defaultPort            = 8080
	defaultServerTimeout   = 10 * time.Second
	defaultDigestTopic     = "insights.digest"
	defaultDigestGroupID   = "insights-notifier"
	defaultDigestInterval  = time.Hour
	defaultServiceVersion  = "0.1.0"
	defaultOTLPEndpoint    = "localhost:4317"
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "json"
)

var (
	ErrMissingDatabaseURL = errors.New("POSTGRES_URL environment variable is required")
	ErrMissingBrokers     = errors.New("KAFKA_BROKERS environment variable is required")
)

// Load reads configuration from environment variables, applying defaults.
// Malformed values are errors; missing ones fall back to the defaults.
func Load() (Config, error) {
	cfg := Config{
		Database: DatabaseConfig{
			URL:            os.Getenv("POSTGRES_URL"),
			MigrationsPath: valueOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
		},
		Digest: DigestConfig{
			Topic:      valueOrDefault("DIGEST_TOPIC", defaultDigestTopic),
			GroupID:    valueOrDefault("DIGEST_GROUP_ID", defaultDigestGroupID),
			WebhookURL: os.Getenv("DIGEST_WEBHOOK_URL"),
		},
		Telemetry: TelemetryConfig{
			ServiceVersion: valueOrDefault("SERVICE_VERSION", defaultServiceVersion),
			OTLPEndpoint:   valueOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", defaultOTLPEndpoint),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format: valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
		},
	}

	var err error
	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"STORE_QUERY_TIMEOUT", defaultQueryTimeout, &cfg.Database.QueryTimeout},
		{"DB_CONN_MAX_LIFETIME", defaultConnMaxLifetime, &cfg.Database.ConnMaxLifetime},
		{"SERVER_READ_TIMEOUT", defaultServerTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultServerTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultServerTimeout, &cfg.HTTP.ShutdownTimeout},
		{"DIGEST_INTERVAL", defaultDigestInterval, &cfg.Digest.Interval},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.key, d.fallback); err != nil {
			return Config{}, err
		}
	}

	if cfg.Database.MaxOpenConns, err = parseInt("DB_MAX_OPEN_CONNS", defaultMaxOpenConns); err != nil {
		return Config{}, err
	}
	if cfg.Database.MaxIdleConns, err = parseInt("DB_MAX_IDLE_CONNS", defaultMaxIdleConns); err != nil {
		return Config{}, err
	}
	if cfg.HTTP.Port, err = parsePort("PORT", defaultPort); err != nil {
		return Config{}, err
	}
	if cfg.Telemetry.TracingEnabled, err = parseBool("TRACING_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.Logging.IncludeCaller, err = parseBool("LOG_INCLUDE_CALLER", false); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// RequireDatabase reports ErrMissingDatabaseURL when POSTGRES_URL is unset.
func (c Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// RequireKafka reports ErrMissingBrokers when KAFKA_BROKERS is unset.
func (c Config) RequireKafka() error {
	if len(c.Kafka.Brokers) == 0 {
		return ErrMissingBrokers
	}
	return nil
}

func (c HTTPConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: %s is not positive", key, v)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, v)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return b, nil
}

func parsePort(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	port, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid %s: port %d is out of range", key, port)
	}
	return port, nil
}
