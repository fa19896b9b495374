package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment driven settings for the eixo server.
type Config struct {
	Port   string
	DBPath string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	JWTSecret string
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	HouseholdGroup     string
	LoginRatePerMinute int
}

// Load reads an optional .env file and then the process environment.
// A missing .env file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:           valueOr(getenv("EIXO_PORT"), "8080"),
		DBPath:         valueOr(getenv("EIXO_DB_PATH"), "eixo.db"),
		LogLevel:       valueOr(getenv("EIXO_LOG_LEVEL"), "info"),
		LogFile:        strings.TrimSpace(getenv("EIXO_LOG_FILE")),
		JWTSecret:      getenv("EIXO_JWT_SECRET"),
		RedisAddr:      strings.TrimSpace(getenv("EIXO_REDIS_ADDR")),
		RedisPassword:  getenv("EIXO_REDIS_PASSWORD"),
		RedisChannel:   valueOr(getenv("EIXO_REDIS_CHANNEL"), "eixo:events"),
		HouseholdGroup: valueOr(getenv("EIXO_HOUSEHOLD_GROUP"), "family"),
	}

	var err error
	if cfg.LogMaxSizeMB, err = intOr(getenv, "EIXO_LOG_MAX_SIZE_MB", 100); err != nil {
		return Config{}, err
	}
	if cfg.LogMaxBackups, err = intOr(getenv, "EIXO_LOG_MAX_BACKUPS", 3); err != nil {
		return Config{}, err
	}
	if cfg.LogMaxAgeDays, err = intOr(getenv, "EIXO_LOG_MAX_AGE_DAYS", 7); err != nil {
		return Config{}, err
	}
	if cfg.LoginRatePerMinute, err = intOr(getenv, "EIXO_LOGIN_RATE_PER_MIN", 10); err != nil {
		return Config{}, err
	}

	cfg.TokenTTL = 30 * 24 * time.Hour
	if v := strings.TrimSpace(getenv("EIXO_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid EIXO_TOKEN_TTL: %q", v)
		}
		cfg.TokenTTL = d
	}

	return cfg, nil
}

func valueOr(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func intOr(getenv func(string) string, key string, def int) (int, error) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}
