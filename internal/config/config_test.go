package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STORE_BACKEND", "CATALOG_SOURCE", "ROOM_TTL", "DEFAULT_ROUNDS",
		"DATABASE_URL", "PG_HOST", "ALLOWED_ORIGINS", "HISTORY_ENABLED", "TRUST_PROXY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, CatalogEmbedded, cfg.CatalogSource)
	assert.Equal(t, 6*time.Hour, cfg.RoomTTL)
	assert.Equal(t, 10, cfg.DefaultRounds)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.False(t, cfg.HistoryEnabled)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, "vgmguess_events", cfg.HistorianQueue)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_BACKEND", "REDIS")
	t.Setenv("ROOM_TTL", "30m")
	t.Setenv("DEFAULT_ROUNDS", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("HISTORY_ENABLED", "true")
	t.Setenv("HISTORIAN_FLUSH_MS", "250")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("CATALOG_SOURCE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PG_HOST", "db")
	t.Setenv("POSTGRES_USER", "vgm")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.RoomTTL)
	assert.Equal(t, 5, cfg.DefaultRounds)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.HistoryEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.HistorianFlush)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, "postgres://vgm:secret@db:5432/vgmguess?sslmode=disable", cfg.DatabaseURL)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{StoreBackend: StoreMemory, CatalogSource: CatalogEmbedded, DefaultRounds: 10, RoomTTL: time.Hour}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown store", func(c *Config) { c.StoreBackend = "etcd" }},
		{"unknown catalog", func(c *Config) { c.CatalogSource = "s3" }},
		{"file without path", func(c *Config) { c.CatalogSource = CatalogFile }},
		{"postgres without url", func(c *Config) { c.CatalogSource = CatalogPostgres }},
		{"zero rounds", func(c *Config) { c.DefaultRounds = 0 }},
		{"zero ttl", func(c *Config) { c.RoomTTL = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base()
			tc.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: "debug", LogFormat: "json"}
	logger := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg = &Config{LogLevel: "loud"}
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}
