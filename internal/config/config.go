// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :5000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// LockoutThreshold is the failed-attempt count at which a non-admin account locks (default 4).
	LockoutThreshold int `mapstructure:"LOCKOUT_THRESHOLD"`
	// LockoutDuration is how long a locked account stays locked (e.g. "15m").
	LockoutDuration string `mapstructure:"LOCKOUT_DURATION"`
	// LivenessWindow is the heartbeat-recency window after which a session is considered dead (e.g. "6m").
	LivenessWindow string `mapstructure:"LIVENESS_WINDOW"`
	// SessionCookieTTL is the outer lifetime of the session cookie (e.g. "8h").
	// Liveness expiry is the effective bound; the cookie TTL is only the transport cap.
	SessionCookieTTL string `mapstructure:"SESSION_COOKIE_TTL"`
	// ValidRegisters is a comma-separated list of terminal IDs logins may bind to.
	ValidRegisters string `mapstructure:"VALID_REGISTERS"`
	// TaxRate is the sales tax rate applied to orders (default 0.08).
	TaxRate float64 `mapstructure:"TAX_RATE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogFile is an optional path for rotated log output; empty logs to stderr.
	LogFile string `mapstructure:"LOG_FILE"`

	// OTLPEndpoint enables OpenTelemetry export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("LOCKOUT_THRESHOLD", 4)
	v.SetDefault("LOCKOUT_DURATION", "15m")
	v.SetDefault("LIVENESS_WINDOW", "6m")
	v.SetDefault("SESSION_COOKIE_TTL", "8h")
	v.SetDefault("VALID_REGISTERS", "REG01,REG02,REG03,REG04")
	v.SetDefault("TAX_RATE", 0.08)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.LockoutThreshold <= 0 {
		return nil, errors.New("config: LOCKOUT_THRESHOLD must be positive")
	}

	if len(cfg.ValidRegistersList()) == 0 {
		return nil, errors.New("config: VALID_REGISTERS must name at least one terminal")
	}

	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return nil, errors.New("config: TAX_RATE must be in [0, 1)")
	}

	return &cfg, nil
}

// LockoutWindow parses LockoutDuration as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) LockoutWindow() time.Duration {
	d, err := time.ParseDuration(c.LockoutDuration)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// Liveness parses LivenessWindow as a time.Duration. Returns 6m if unset or invalid.
func (c *Config) Liveness() time.Duration {
	d, err := time.ParseDuration(c.LivenessWindow)
	if err != nil || d <= 0 {
		return 6 * time.Minute
	}
	return d
}

// CookieTTL parses SessionCookieTTL as a time.Duration. Returns 8h if unset or invalid.
func (c *Config) CookieTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionCookieTTL)
	if err != nil || d <= 0 {
		return 8 * time.Hour
	}
	return d
}

// ValidRegistersList returns terminal IDs from the comma-separated config.
func (c *Config) ValidRegistersList() []string {
	if c == nil || c.ValidRegisters == "" {
		return nil
	}
	parts := strings.Split(c.ValidRegisters, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
