package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	strutil "pawhaven/pkg/platform/strings"
)

const (
	DefaultAddr            = ":8080"
	DefaultProvider        = "liqpay"
	DefaultLifecycleTopic  = "guardianship.lifecycle"
	DefaultGraceDays       = 3
	DefaultSweepInterval   = time.Hour
	devJWTSigningKey       = "dev-secret-key-change-in-production"
	devPaymentPrivateKey   = "sandbox-private-key"
	defaultRedisPoolSize   = 10
	defaultRedisMinIdle    = 2
	defaultRedisDialTO     = 5 * time.Second
	defaultRedisReadWrite  = 3 * time.Second
	defaultDBDriver        = "pgx"
	defaultDBMaxOpenConns  = 20
	defaultDBMaxIdleConns  = 5
	defaultDBConnLifetime  = 30 * time.Minute
	defaultSweepLockExpiry = 5 * time.Minute
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string
	JWTIssuer     string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Payment  PaymentConfig

	GraceDays      int
	SweepInterval  time.Duration
	SweepLockTTL   time.Duration
	RunMigrations  bool
	MetricsEnabled bool
}

// DatabaseConfig selects the store backend. An empty URL keeps everything in
// memory.
type DatabaseConfig struct {
	URL             string
	Driver          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional. Without it sweeps run unlocked, which is only
// safe for single-replica deployments.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig is optional. Without brokers lifecycle events are dropped.
type KafkaConfig struct {
	Brokers        []string
	LifecycleTopic string
}

type PaymentConfig struct {
	Provider   string
	PrivateKey string
	// Methods seeds the provider name to payment method id table, in
	// "name=uuid,name=uuid" form.
	Methods string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []string
	intVar := func(key string, def int) int {
		v, err := envInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := envDuration(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	cfg := Server{
		Addr:          envString("ADDR", DefaultAddr),
		LogLevel:      envString("LOG_LEVEL", "info"),
		JWTSigningKey: envString("JWT_SIGNING_KEY", devJWTSigningKey),
		JWTIssuer:     os.Getenv("JWT_ISSUER"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Driver:          envString("DB_DRIVER", defaultDBDriver),
			MaxOpenConns:    intVar("DB_MAX_OPEN_CONNS", defaultDBMaxOpenConns),
			MaxIdleConns:    intVar("DB_MAX_IDLE_CONNS", defaultDBMaxIdleConns),
			ConnMaxLifetime: durVar("DB_CONN_MAX_LIFETIME", defaultDBConnLifetime),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     intVar("REDIS_POOL_SIZE", defaultRedisPoolSize),
			MinIdleConns: intVar("REDIS_MIN_IDLE_CONNS", defaultRedisMinIdle),
			DialTimeout:  durVar("REDIS_DIAL_TIMEOUT", defaultRedisDialTO),
			ReadTimeout:  durVar("REDIS_READ_TIMEOUT", defaultRedisReadWrite),
			WriteTimeout: durVar("REDIS_WRITE_TIMEOUT", defaultRedisReadWrite),
		},
		Kafka: KafkaConfig{
			Brokers:        strutil.SplitList(os.Getenv("KAFKA_BROKERS")),
			LifecycleTopic: envString("KAFKA_LIFECYCLE_TOPIC", DefaultLifecycleTopic),
		},
		Payment: PaymentConfig{
			Provider:   strings.ToLower(envString("PAYMENT_PROVIDER", DefaultProvider)),
			PrivateKey: envString("PAYMENT_PRIVATE_KEY", devPaymentPrivateKey),
			Methods:    os.Getenv("PAYMENT_METHODS"),
		},
		GraceDays:      intVar("GUARDIANSHIP_GRACE_DAYS", DefaultGraceDays),
		SweepInterval:  durVar("SWEEP_INTERVAL", DefaultSweepInterval),
		SweepLockTTL:   durVar("SWEEP_LOCK_TTL", defaultSweepLockExpiry),
		RunMigrations:  os.Getenv("RUN_MIGRATIONS") != "false",
		MetricsEnabled: os.Getenv("METRICS_ENABLED") != "false",
	}

	if cfg.GraceDays <= 0 {
		errs = append(errs, "GUARDIANSHIP_GRACE_DAYS must be positive")
	}
	if cfg.SweepInterval <= 0 {
		errs = append(errs, "SWEEP_INTERVAL must be positive")
	}
	switch cfg.Database.Driver {
	case "pgx", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER must be pgx or postgres, got %q", cfg.Database.Driver))
	}
	if len(errs) > 0 {
		return Server{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// UsesDevSecrets reports whether built-in development secrets are in effect.
func (s Server) UsesDevSecrets() bool {
	return s.JWTSigningKey == devJWTSigningKey || s.Payment.PrivateKey == devPaymentPrivateKey
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def, fmt.Errorf("%s must be a duration", key)
	}
	return v, nil
}
