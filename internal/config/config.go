// Package config reads service settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Catalog sources.
const (
	CatalogEmbedded = "embedded"
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
)

// Config holds every setting the binaries read.
type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string

	StoreBackend string
	RedisAddr    string
	RedisDB      int
	RoomTTL      time.Duration

	CatalogSource string
	CatalogPath   string
	DatabaseURL   string

	DefaultRounds  int
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy honours X-Forwarded-For/X-Real-IP for the client address.
	TrustProxy bool

	HistoryEnabled     bool
	HistorianQueue     string
	HistorianBatchSize int
	HistorianFlush     time.Duration
	GameInactivity     time.Duration
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		RoomTTL:      getEnvDuration("ROOM_TTL", 6*time.Hour),

		CatalogSource: strings.ToLower(getEnv("CATALOG_SOURCE", CatalogEmbedded)),
		CatalogPath:   getEnv("CATALOG_PATH", ""),
		DatabaseURL:   getEnv("DATABASE_URL", postgresURLFromParts()),

		DefaultRounds:  getEnvInt("DEFAULT_ROUNDS", 10),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
		TrustProxy:     getEnvBool("TRUST_PROXY", false),

		HistoryEnabled:     getEnvBool("HISTORY_ENABLED", false),
		HistorianQueue:     getEnv("HISTORIAN_QUEUE_NAME", "vgmguess_events"),
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		GameInactivity:     time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.CatalogSource {
	case CatalogEmbedded:
	case CatalogFile:
		if c.CatalogPath == "" {
			return fmt.Errorf("config: CATALOG_PATH is required when CATALOG_SOURCE=file")
		}
	case CatalogPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when CATALOG_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("config: unknown CATALOG_SOURCE %q", c.CatalogSource)
	}
	if c.DefaultRounds < 1 {
		return fmt.Errorf("config: DEFAULT_ROUNDS must be at least 1")
	}
	if c.RoomTTL <= 0 {
		return fmt.Errorf("config: ROOM_TTL must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.WithField("value", c.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// postgresURLFromParts builds a connection string from the discrete
// POSTGRES_USER/PASSWORD and PG_* variables, or returns "" when no host is set.
func postgresURLFromParts() string {
	host := os.Getenv("PG_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "postgres"),
		os.Getenv("POSTGRES_PASSWORD"),
		host,
		getEnv("PG_PORT", "5432"),
		getEnv("PG_DATABASE", "vgmguess"),
		getEnv("PG_SSLMODE", "disable"),
	)
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}

func getEnvFloat(key string, defVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defVal
	}
	return f
}

func getEnvBool(key string, defVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defVal
	}
	return b
}

func getEnvDuration(key string, defVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defVal
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
