/*
Package config loads server configuration.

ORDER OF PRECEDENCE (highest first):
  1. Command-line flags (-port, -db), applied by cmd/server
  2. Process environment
  3. .env file in the working directory (optional)
  4. Defaults below

VARIABLES:
  PORT                     HTTP port (8080)
  DB_DRIVER                sqlite | postgres (sqlite)
  DB_PATH                  SQLite file, ":memory:" allowed (vacation.db)
  DATABASE_URL             Postgres DSN, required when DB_DRIVER=postgres
  JWT_SECRET               Enables bearer-token identity when set
  WEBHOOK_URL              Event webhook target (disabled when empty)
  SQS_QUEUE_URL            Event queue (disabled when empty)
  RECONCILE_INTERVAL       Go duration; "0" disables the scheduler (1h)
  DEFAULT_LOCALE           Fallback locale for error messages (en)
  DEFAULT_VACATION_DAYS    Total for lazily created balances (22)
  DEFAULT_PAID_LEAVE_DAYS  Total for lazily created balances (4)
  CORS_ORIGINS             Comma-separated allowed origins (*)
  LOG_LEVEL                debug | info | warn | error (info)
  SCENARIOS                Mount the demo scenario routes (false)
*/
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/vacation-ledger/generic"
	"github.com/warp/vacation-ledger/vacation"
)

type Config struct {
	Port                 int
	DBDriver             string
	DBPath               string
	DatabaseURL          string
	JWTSecret            string
	WebhookURL           string
	SQSQueueURL          string
	ReconcileInterval    time.Duration
	DefaultLocale        string
	DefaultVacationDays  generic.Amount
	DefaultPaidLeaveDays generic.Amount
	CORSOrigins          []string
	LogLevel             slog.Level
	Scenarios            bool
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:        getEnv("DB_PATH", "vacation.db"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		SQSQueueURL:   getEnv("SQS_QUEUE_URL", ""),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080")); err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(getEnv("RECONCILE_INTERVAL", "1h")); err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
	}
	if cfg.DefaultVacationDays, err = generic.ParseDays(getEnv("DEFAULT_VACATION_DAYS", "22")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_VACATION_DAYS: %w", err)
	}
	if cfg.DefaultPaidLeaveDays, err = generic.ParseDays(getEnv("DEFAULT_PAID_LEAVE_DAYS", "4")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PAID_LEAVE_DAYS: %w", err)
	}
	if cfg.Scenarios, err = strconv.ParseBool(getEnv("SCENARIOS", "false")); err != nil {
		return nil, fmt.Errorf("invalid SCENARIOS: %w", err)
	}
	if err = cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DefaultVacationDays.IsNegative() || c.DefaultPaidLeaveDays.IsNegative() {
		return fmt.Errorf("default totals must not be negative")
	}
	return nil
}

// Totals returns the entitlement used for lazily created balances.
func (c *Config) Totals() vacation.Totals {
	t := vacation.DefaultTotals()
	t[vacation.CategoryVacation] = c.DefaultVacationDays
	t[vacation.CategoryPaidLeave] = c.DefaultPaidLeaveDays
	return t
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
