package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), a .env file, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/media)" flag:"image-base-url"`
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Graceful     GracefulConfig
	Outbox       OutboxConfig
}

// AuthConfig controls token signing.
type AuthConfig struct {
	Secret     string        `usage:"HMAC secret for access and refresh tokens (ORDERS_AUTH_SECRET)"`
	AccessTTL  time.Duration `default:"15m" usage:"Access token lifetime" flag:"access-ttl"`
	RefreshTTL time.Duration `default:"168h" usage:"Refresh token lifetime" flag:"refresh-ttl"`
	BcryptCost int           `default:"10" usage:"bcrypt cost for password hashes" flag:"bcrypt-cost"`
}

// RateLimitConfig controls the sliding window rate limiters.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window per caller"`
	IPMax  int           `default:"300" usage:"Max requests per window per client IP, checked before token resolution" flag:"rate-limit-ip-max"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// OutboxConfig controls the order event relay.
type OutboxConfig struct {
	Brokers     []string      `default:"localhost:9092" usage:"Kafka brokers"`
	Topic       string        `default:"orders.events" usage:"Kafka topic for order events"`
	BatchSize   int           `default:"100" usage:"Records claimed per batch" flag:"outbox-batch-size"`
	Interval    time.Duration `default:"1s" usage:"Poll interval" flag:"outbox-interval"`
	MaxAttempts int           `default:"10" usage:"Failed publishes before a record is parked" flag:"outbox-max-attempts"`
	MetricsAddr string        `default:"0.0.0.0:9464" usage:"Prometheus /metrics listen address" flag:"metrics-addr"`
}

// LoadConfig loads configuration from an optional .env file, environment
// variables and YAML config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:        "ORDERS",
		AllowUnknownEnvs: true,
		Files:            []string{"config.yaml", "/etc/orders/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}
	return &cfg, nil
}

// Validate checks settings the API server cannot start without.
func (c *Config) Validate() error {
	if len(c.Auth.Secret) < 32 {
		return errors.New("auth secret must be at least 32 bytes: set ORDERS_AUTH_SECRET")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return errors.New("refresh token lifetime must exceed access token lifetime")
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.IPMax <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limits must be positive: set ORDERS_RATE_LIMIT_MAX, ORDERS_RATE_LIMIT_IP_MAX and ORDERS_RATE_LIMIT_WINDOW")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the ORDERS_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
