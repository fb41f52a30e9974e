package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/vacation-ledger/config"
	"github.com/warp/vacation-ledger/vacation"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "DB_PATH", "RECONCILE_INTERVAL", "DEFAULT_VACATION_DAYS", "DEFAULT_PAID_LEAVE_DAYS", "CORS_ORIGINS", "LOG_LEVEL", "SCENARIOS"} {
		t.Setenv(k, "")
	}

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "vacation.db", cfg.DBPath)
	assert.Equal(t, time.Hour, cfg.ReconcileInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.Scenarios)

	totals := cfg.Totals()
	assert.Equal(t, "22", totals[vacation.CategoryVacation].String())
	assert.Equal(t, "4", totals[vacation.CategoryPaidLeave].String())
	assert.Equal(t, "0", totals[vacation.CategoryUnpaidLeave].String())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/vac")
	t.Setenv("RECONCILE_INTERVAL", "0")
	t.Setenv("DEFAULT_VACATION_DAYS", "25.5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Zero(t, cfg.ReconcileInterval)
	assert.Equal(t, "25.5", cfg.Totals()[vacation.CategoryVacation].String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres", "DATABASE_URL": ""}},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"bad interval", map[string]string{"RECONCILE_INTERVAL": "soon"}},
		{"bad days", map[string]string{"DEFAULT_VACATION_DAYS": "many"}},
		{"negative days", map[string]string{"DEFAULT_PAID_LEAVE_DAYS": "-1"}},
		{"bad port", map[string]string{"PORT": "http"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"bad scenarios flag", map[string]string{"SCENARIOS": "perhaps"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DRIVER", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.FromEnv()
			assert.Error(t, err)
		})
	}
}
