package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 100, cfg.Business.DefaultPageSize)
	assert.True(t, cfg.GetVATRate().Equal(decimal.RequireFromString("0.20")))
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, "Europe/Paris", cfg.GetSchedulerLocation().String())
	assert.Equal(t, 5*time.Second, cfg.GetHealthTimeout())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DEFAULT_PAGE_SIZE", "25")
	t.Setenv("VAT_RATE", "0.055")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("CHARGE_CACHE_TTL", "30s")
	t.Setenv("ENV", "production")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 25, cfg.Business.DefaultPageSize)
	assert.True(t, cfg.GetVATRate().Equal(decimal.RequireFromString("0.055")))
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"page size", "DEFAULT_PAGE_SIZE", "0", "DEFAULT_PAGE_SIZE"},
		{"vat rate", "VAT_RATE", "twenty", "VAT_RATE"},
		{"negative vat rate", "VAT_RATE", "-0.1", "VAT_RATE"},
		{"cron", "SCHEDULER_CRON", "every day", "SCHEDULER_CRON"},
		{"timezone", "SCHEDULER_TIMEZONE", "Mars/Olympus", "SCHEDULER_TIMEZONE"},
		{"health timeout", "HEALTH_CHECK_TIMEOUT", "soon", "HEALTH_CHECK_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			_, err := load(viper.New())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		Name:     "fleet",
		User:     "app",
		Password: "s3cr#t",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://app:s3cr%23t@db:5432/fleet?sslmode=disable", d.DSN())

	d.URL = "postgres://override"
	assert.Equal(t, "postgres://override", d.DSN())
}
