// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Minimum secret lengths accepted by Validate.
const (
	MinJWTSecretLength     = 32
	MinEncryptionKeyLength = 32
	MaxPlatformFeeBPS      = 5000
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL    string `env:"DATABASE_URL,required"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Public URLs
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Authentication
	JWTSecret        string        `env:"JWT_SECRET,required"`
	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"xscan"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	TOTPIssuer       string        `env:"TOTP_ISSUER" envDefault:"XScan"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"30m"`

	// Encryption key material for stored secrets and the security endpoints.
	EncryptionKey string `env:"ENCRYPTION_KEY,required"`

	// Money (minor units of Currency)
	Currency            string `env:"CURRENCY" envDefault:"USD"`
	PlatformFeeBPS      int64  `env:"PLATFORM_FEE_BPS" envDefault:"500"`
	MinDonationAmount   int64  `env:"MIN_DONATION_AMOUNT" envDefault:"100"`
	MaxDonationAmount   int64  `env:"MAX_DONATION_AMOUNT" envDefault:"1000000"`
	MinWithdrawalAmount int64  `env:"MIN_WITHDRAWAL_AMOUNT" envDefault:"1000"`
	MaxDepositAmount    int64  `env:"MAX_DEPOSIT_AMOUNT" envDefault:"5000000"`
	MaxBankAccounts     int    `env:"MAX_BANK_ACCOUNTS" envDefault:"5"`

	// Rate limiting
	RateLimitEnabled       bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitAuthPerMinute int  `env:"RATE_LIMIT_AUTH_PER_MINUTE" envDefault:"10"`
	RateLimitAPIPerMinute  int  `env:"RATE_LIMIT_API_PER_MINUTE" envDefault:"120"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Admin dashboard cache
	StatsCacheTTL time.Duration `env:"STATS_CACHE_TTL" envDefault:"60s"`

	// Background workers
	WorkersEnabled     bool          `env:"WORKERS_ENABLED" envDefault:"true"`
	AlertAllowInsecure bool          `env:"ALERT_ALLOW_INSECURE" envDefault:"false"`
	AlertBatchSize     int           `env:"ALERT_BATCH_SIZE" envDefault:"50"`
	AlertPollInterval  time.Duration `env:"ALERT_POLL_INTERVAL" envDefault:"5s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints that env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", MinJWTSecretLength))
	}
	if len(c.EncryptionKey) < MinEncryptionKeyLength {
		errs = append(errs, fmt.Errorf("ENCRYPTION_KEY must be at least %d characters", MinEncryptionKeyLength))
	}
	if c.PlatformFeeBPS < 0 || c.PlatformFeeBPS > MaxPlatformFeeBPS {
		errs = append(errs, fmt.Errorf("PLATFORM_FEE_BPS must be between 0 and %d", MaxPlatformFeeBPS))
	}
	if c.MinDonationAmount <= 0 || c.MaxDonationAmount < c.MinDonationAmount {
		errs = append(errs, errors.New("donation limits must satisfy 0 < MIN_DONATION_AMOUNT <= MAX_DONATION_AMOUNT"))
	}
	if c.MinWithdrawalAmount <= 0 {
		errs = append(errs, errors.New("MIN_WITHDRAWAL_AMOUNT must be positive"))
	}
	if c.MaxDepositAmount <= 0 {
		errs = append(errs, errors.New("MAX_DEPOSIT_AMOUNT must be positive"))
	}
	if c.MaxBankAccounts <= 0 {
		errs = append(errs, errors.New("MAX_BANK_ACCOUNTS must be positive"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, errors.New("token TTLs must satisfy 0 < ACCESS_TOKEN_TTL < REFRESH_TOKEN_TTL"))
	}
	if c.AlertBatchSize <= 0 || c.AlertPollInterval <= 0 {
		errs = append(errs, errors.New("ALERT_BATCH_SIZE and ALERT_POLL_INTERVAL must be positive"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, errors.New("CURRENCY must be a 3-letter ISO code"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	cfg.FrontendURL = strings.TrimSuffix(cfg.FrontendURL, "/")
	cfg.Currency = strings.ToUpper(cfg.Currency)
	return cfg, nil
}
