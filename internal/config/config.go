package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port                      string `envconfig:"PORT" default:"8080"`
	AllowedOrigin             string `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`
	LogLevel                  string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment            bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`
	Timezone                  string `envconfig:"TIMEZONE" default:"UTC"`
	StoreBackend              string `envconfig:"STORE_BACKEND"`
	DatabaseURL               string `envconfig:"DATABASE_URL"`
	RedisAddr                 string `envconfig:"REDIS_ADDR"`
	RedisPassword             string `envconfig:"REDIS_PASSWORD"`
	RedisDB                   int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix            string `envconfig:"REDIS_KEY_PREFIX" default:"salesjournal:"`
	CatalogSeedPath           string `envconfig:"CATALOG_SEED_PATH"`
	ReportCacheTTLSeconds     int    `envconfig:"REPORT_CACHE_TTL_SECONDS" default:"30"`
	ConfirmSecret             string `envconfig:"CONFIRM_SECRET"`
	ConfirmTTLSeconds         int    `envconfig:"CONFIRM_TTL_SECONDS" default:"60"`
	ResyncIntervalSeconds     int    `envconfig:"RESYNC_INTERVAL_SECONDS" default:"30"`
	PersistTimeoutSeconds     int    `envconfig:"PERSIST_TIMEOUT_SECONDS" default:"5"`
	SnapshotCompressThreshold int    `envconfig:"SNAPSHOT_COMPRESS_THRESHOLD" default:"16384"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	cfg.ConfirmSecret = strings.TrimSpace(cfg.ConfirmSecret)
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	if cfg.ReportCacheTTLSeconds < 1 {
		cfg.ReportCacheTTLSeconds = 30
	}
	if cfg.ConfirmTTLSeconds < 1 {
		cfg.ConfirmTTLSeconds = 60
	}
	if cfg.ResyncIntervalSeconds < 1 {
		cfg.ResyncIntervalSeconds = 30
	}
	if cfg.PersistTimeoutSeconds < 1 {
		cfg.PersistTimeoutSeconds = 5
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Backend returns the persistence backend, inferring it from the connection
// settings when STORE_BACKEND is empty.
func (c Config) Backend() string {
	if c.StoreBackend != "" {
		return c.StoreBackend
	}
	switch {
	case c.DatabaseURL != "":
		return BackendPostgres
	case c.RedisAddr != "":
		return BackendRedis
	default:
		return BackendMemory
	}
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) ReportCacheTTL() time.Duration {
	return time.Duration(c.ReportCacheTTLSeconds) * time.Second
}

func (c Config) ConfirmTTL() time.Duration {
	return time.Duration(c.ConfirmTTLSeconds) * time.Second
}

func (c Config) ResyncInterval() time.Duration {
	return time.Duration(c.ResyncIntervalSeconds) * time.Second
}

func (c Config) PersistTimeout() time.Duration {
	return time.Duration(c.PersistTimeoutSeconds) * time.Second
}
