package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	VNPay     VNPayConfig
	Secrets   SecretsConfig
	Frontend  FrontendConfig
	Cart      CartConfig
	RateLimit RateLimitConfig
	Logger    LoggerConfig
}

// ServerConfig holds listener configuration
type ServerConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development" validate:"oneof=development sandbox staging production"`
	Host        string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080" validate:"min=1,max=65535"`
	GRPCPort    int    `envconfig:"GRPC_PORT" default:"50051" validate:"min=1,max=65535"`
	MetricsPort int    `envconfig:"METRICS_PORT" default:"9090" validate:"min=1,max=65535"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers are honored; empty trusts none
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string        `envconfig:"DATABASE_URL" validate:"required"`
	MaxConns     int32         `envconfig:"DB_MAX_CONNS" default:"25" validate:"min=1"`
	MinConns     int32         `envconfig:"DB_MIN_CONNS" default:"5" validate:"min=0,ltefield=MaxConns"`
	QueryTimeout time.Duration `envconfig:"DB_QUERY_TIMEOUT" default:"2s"`
}

// VNPayConfig holds merchant settings for the VNPay redirect flow.
// HashSecret may be given directly or resolved from SecretPath.
type VNPayConfig struct {
	TmnCode     string        `envconfig:"VNPAY_TMN_CODE" validate:"required"`
	HashSecret  string        `envconfig:"VNPAY_HASH_SECRET" validate:"required_without=SecretPath"`
	SecretPath  string        `envconfig:"VNPAY_HASH_SECRET_PATH"`
	PayURL      string        `envconfig:"VNPAY_PAY_URL" validate:"omitempty,url"`
	ReturnURL   string        `envconfig:"VNPAY_RETURN_URL" validate:"required,url"`
	Locale      string        `envconfig:"VNPAY_LOCALE" default:"vn" validate:"oneof=vn en"`
	CurrCode    string        `envconfig:"VNPAY_CURR_CODE" default:"VND" validate:"len=3"`
	OrderType   string        `envconfig:"VNPAY_ORDER_TYPE" default:"other"`
	ExpireAfter time.Duration `envconfig:"VNPAY_EXPIRE_AFTER" default:"15m"`

	// IPNAllowedIPs lists source IPs or CIDRs allowed to call the IPN endpoint; empty allows all
	IPNAllowedIPs []string `envconfig:"VNPAY_IPN_ALLOWED_IPS"`
}

// SecretsConfig selects the secret manager backend
type SecretsConfig struct {
	Backend        string        `envconfig:"SECRETS_BACKEND" default:"local" validate:"oneof=local aws vault"`
	LocalPath      string        `envconfig:"SECRETS_LOCAL_PATH" default:"./secrets"`
	AWSRegion      string        `envconfig:"AWS_REGION" default:"ap-southeast-1"`
	AWSEndpoint    string        `envconfig:"AWS_SECRETS_ENDPOINT"`
	VaultAddress   string        `envconfig:"VAULT_ADDR" validate:"required_if=Backend vault"`
	VaultToken     string        `envconfig:"VAULT_TOKEN"`
	VaultMountPath string        `envconfig:"VAULT_MOUNT_PATH" default:"secret"`
	CacheTTL       time.Duration `envconfig:"SECRETS_CACHE_TTL" default:"5m"`
}

// FrontendConfig holds where browsers land after a payment
type FrontendConfig struct {
	PaymentResultURL string `envconfig:"FRONTEND_PAYMENT_RESULT_URL" validate:"required,url"`
}

// CartConfig holds cart cache and clearing settings
type CartConfig struct {
	CacheTTL        time.Duration `envconfig:"CART_CACHE_TTL" default:"1m"`
	CacheMaxSize    int           `envconfig:"CART_CACHE_MAX_SIZE" default:"10000" validate:"min=1"`
	ClearTimeout    time.Duration `envconfig:"CART_CLEAR_TIMEOUT" default:"3s"`
	BreakerFailures uint32        `envconfig:"CART_BREAKER_FAILURES" default:"5" validate:"min=1"`
	BreakerOpenFor  time.Duration `envconfig:"CART_BREAKER_OPEN_FOR" default:"30s"`
}

// RateLimitConfig holds per-IP limits for the processor callback endpoints
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" default:"20" validate:"gt=0"`
	Burst             int     `envconfig:"RATE_LIMIT_BURST" default:"40" validate:"min=1"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Development bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
}

// LoadFromEnv loads configuration from environment variables.
// A .env file in the working directory is read first if present; it never
// overrides variables already set.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the populated struct against its validate tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction reports whether the service talks to the live VNPay endpoint
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}
