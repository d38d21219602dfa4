package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the Pagecraft publishing server.
type Config struct {
	DBDriver      string
	DBPath        string
	DatabaseURL   string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	DefaultHost   string
	HostAliases   []string
	APIToken      string
	AdminToken    string
	VisitStore    string
	Redis         RedisConfig
	RateLimit     RateLimitConfig
	Notify        NotifyConfig
	ShutdownGrace time.Duration
}

// RedisConfig describes the optional Redis visit counter backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig configures the per-client token bucket on the public serving path.
type RateLimitConfig struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

// NotifyConfig bounds the best-effort side effects run after publish and resolve.
type NotifyConfig struct {
	Concurrency int
	Timeout     time.Duration
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	VisitStoreDatabase = "database"
	VisitStoreRedis    = "redis"
)

const (
	defaultDBDriver          = DriverSQLite
	defaultDBPath            = "./data/pagecraft.db"
	defaultServerPort        = 8080
	defaultLogLevel          = "info"
	defaultEnvironment       = "development"
	defaultHost              = "localhost"
	defaultVisitStore        = VisitStoreDatabase
	defaultRedisAddr         = "localhost:6379"
	defaultRateLimitBurst    = 60
	defaultRateLimitRPS      = 20
	defaultRateLimitTTL      = 10 * time.Minute
	defaultNotifyConcurrency = 16
	defaultNotifyTimeout     = 5 * time.Second
	defaultShutdownGrace     = 10 * time.Second
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", defaultDBDriver)),
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		DefaultHost:   strings.ToLower(getEnv("DEFAULT_HOST", defaultHost)),
		APIToken:      os.Getenv("API_TOKEN"),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		VisitStore:    strings.ToLower(getEnv("VISIT_STORE", defaultVisitStore)),
		ShutdownGrace: defaultShutdownGrace,
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", defaultRedisAddr),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, eris.New("DATABASE_URL is required when DB_DRIVER is postgres")
		}
	default:
		return nil, eris.Errorf("invalid DB_DRIVER value: %s", cfg.DBDriver)
	}

	switch cfg.VisitStore {
	case VisitStoreDatabase, VisitStoreRedis:
	default:
		return nil, eris.Errorf("invalid VISIT_STORE value: %s", cfg.VisitStore)
	}

	if aliasesJSON := os.Getenv("DEFAULT_HOST_ALIASES"); aliasesJSON != "" {
		aliases, err := parseHosts(aliasesJSON)
		if err != nil {
			return nil, eris.Wrap(err, "parsing DEFAULT_HOST_ALIASES")
		}
		cfg.HostAliases = aliases
	}

	var err error
	if cfg.ServerPort, err = getInt("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = getInt("RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RequestsPerSecond, err = getFloat("RATE_LIMIT_RPS", defaultRateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimit.ClientTTL, err = getDuration("RATE_LIMIT_TTL", defaultRateLimitTTL); err != nil {
		return nil, err
	}
	if cfg.Notify.Concurrency, err = getInt("NOTIFY_CONCURRENCY", defaultNotifyConcurrency); err != nil {
		return nil, err
	}
	if cfg.Notify.Timeout, err = getDuration("NOTIFY_TIMEOUT", defaultNotifyTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = getDuration("SHUTDOWN_GRACE", defaultShutdownGrace); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func parseHosts(raw string) ([]string, error) {
	// Accept either a JSON array of strings or an object with a `hosts` field.
	var arrayInput []string
	if err := json.Unmarshal([]byte(raw), &arrayInput); err == nil {
		return lowerAll(arrayInput), nil
	}

	var objectInput struct {
		Hosts []string `json:"hosts"`
	}
	if err := json.Unmarshal([]byte(raw), &objectInput); err != nil {
		return nil, eris.Wrap(err, "decoding JSON")
	}

	if len(objectInput.Hosts) == 0 {
		return nil, eris.New("hosts list is empty")
	}

	return lowerAll(objectInput.Hosts), nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.ToLower(strings.TrimSpace(value)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
