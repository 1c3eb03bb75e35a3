// Package config loads runtime configuration from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the fuel server.
type Config struct {
	Addr               string        `env:"ADDR,default=:5000"`
	DatabaseURL        string        `env:"DATABASE_URL,default=sqlite://fuel.db"`
	JWTSecret          string        `env:"JWT_SECRET,required"`
	TokenTTL           time.Duration `env:"TOKEN_TTL,default=24h"`
	AllowedOrigins     []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:3000"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE,default=300"`
	LogLevel           string        `env:"LOG_LEVEL,default=info"`
	LogFormat          string        `env:"LOG_FORMAT,default=json"`
	QueryTimeout       time.Duration `env:"QUERY_TIMEOUT,default=5s"`
	Timezone           string        `env:"TIMEZONE,default=UTC"`
	MonitorInterval    time.Duration `env:"MONITOR_INTERVAL,default=5m"`
	SuperAdminUsername string        `env:"SUPERADMIN_USERNAME"`
	SuperAdminPassword string        `env:"SUPERADMIN_PASSWORD"`
	SuperAdminEmail    string        `env:"SUPERADMIN_EMAIL"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	var errs []error
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	if c.MonitorInterval < 0 {
		errs = append(errs, errors.New("MONITOR_INTERVAL must not be negative"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}
	if (c.SuperAdminUsername == "") != (c.SuperAdminPassword == "") {
		errs = append(errs, errors.New("SUPERADMIN_USERNAME and SUPERADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// Level parses LOG_LEVEL.
func (c Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Location loads TIMEZONE. Day and month boundaries are computed in it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	return loc, nil
}

// MemoryStore reports whether DATABASE_URL selects the in-process store.
func (c Config) MemoryStore() bool {
	return c.DatabaseURL == "memory://"
}
