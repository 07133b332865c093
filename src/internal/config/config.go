package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=securebank_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultRedisAddr = "localhost:6379"
const defaultMetricsAddr = ":9090"

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	Environment       string
	LogLevel          string
	Storage           string
	DatabaseDSN       string
	MigrationsDir     string
	LockBackend       string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	LockExpiry        time.Duration
	LockTries         int
	LockRetryDelay    time.Duration
	LedgerMaxAttempts int
	MetricsAddr       string
	SeedDemo          bool
}

func Load() (Config, error) {
	conn := envOr("DATABASE_DSN", defaultConnectionString)

	migrationsDir := envOr("MIGRATIONS_DIR", filepath.Join("src", "migrations"))

	storage := strings.ToLower(envOr("STORAGE", StoragePostgres))
	lockBackend := strings.ToLower(envOr("LOCK_BACKEND", LockBackendMemory))

	var errs []string
	if storage != StorageMemory && storage != StoragePostgres {
		errs = append(errs, fmt.Sprintf("STORAGE must be %s or %s", StorageMemory, StoragePostgres))
	}
	if lockBackend != LockBackendMemory && lockBackend != LockBackendRedis {
		errs = append(errs, fmt.Sprintf("LOCK_BACKEND must be %s or %s", LockBackendMemory, LockBackendRedis))
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		errs = append(errs, err.Error())
	}
	lockTries, err := intEnv("LOCK_TRIES", 32)
	if err != nil {
		errs = append(errs, err.Error())
	}
	maxAttempts, err := intEnv("LEDGER_MAX_ATTEMPTS", 5)
	if err != nil {
		errs = append(errs, err.Error())
	} else if maxAttempts < 1 {
		errs = append(errs, "LEDGER_MAX_ATTEMPTS must be at least 1")
	}
	lockExpiry, err := durationEnv("LOCK_EXPIRY", 10*time.Second)
	if err != nil {
		errs = append(errs, err.Error())
	}
	lockRetryDelay, err := durationEnv("LOCK_RETRY_DELAY", 50*time.Millisecond)
	if err != nil {
		errs = append(errs, err.Error())
	}

	seedDemo, err := boolEnv("SEED_DEMO", false)
	if err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return Config{}, errors.New(strings.Join(errs, "; "))
	}

	return Config{
		Environment:       envOr("APP_ENV", "production"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		Storage:           storage,
		DatabaseDSN:       normalizeConnectionString(conn),
		MigrationsDir:     migrationsDir,
		LockBackend:       lockBackend,
		RedisAddr:         envOr("REDIS_ADDR", defaultRedisAddr),
		RedisPassword:     strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:           redisDB,
		LockExpiry:        lockExpiry,
		LockTries:         lockTries,
		LockRetryDelay:    lockRetryDelay,
		LedgerMaxAttempts: maxAttempts,
		MetricsAddr:       envOr("METRICS_ADDR", defaultMetricsAddr),
		SeedDemo:          seedDemo,
	}, nil
}

func envOr(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return value, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration", key)
	}
	return value, nil
}

// normalizeConnectionString turns an ADO style "Key=Value;..." string into a
// libpq keyword/value string. Anything else is returned unchanged.
func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host", "server":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username", "user id":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode", "ssl mode":
			hasSSLMode = true
			out = append(out, "sslmode="+strings.ToLower(val))
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
