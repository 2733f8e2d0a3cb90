package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort              = "8080"
	defaultRedisAddr         = "127.0.0.1:6379"
	defaultAppURL            = "http://localhost:3000"
	defaultTokenTTL          = 72 * time.Hour
	defaultPasswordResetTTL  = 30 * time.Minute
	defaultWorkerConcurrency = 5
)

// Request store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

type Config struct {
	Env  string
	Port string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisAddr         string
	RequestStore      string
	WorkerConcurrency int

	JWTSecret            string
	TokenTTL             time.Duration
	PasswordResetTTL     time.Duration
	AdminBootstrapSecret string

	AppURL      string
	CORSOrigins []string
	CatalogFile string

	WaveAPIKey           string
	WaveAPISecret        string
	OrangeMoneyAPIKey    string
	OrangeMoneyAPISecret string
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:               getEnv("APP_ENV", "production"),
		Port:              getEnv("PORT", defaultPort),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBName:            os.Getenv("DB_NAME"),
		RedisAddr:         redisAddr(),
		RequestStore:      strings.ToLower(getEnv("REQUEST_STORE", StorePostgres)),
		WorkerConcurrency: defaultWorkerConcurrency,
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          defaultTokenTTL,
		PasswordResetTTL:  defaultPasswordResetTTL,
		AppURL:            strings.TrimRight(getEnv("APP_URL", defaultAppURL), "/"),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", defaultAppURL)),
		CatalogFile:       getEnv("CATALOG_FILE", "catalog.yaml"),
	}
	cfg.WaveAPIKey, cfg.WaveAPISecret = os.Getenv("WAVE_API_KEY"), os.Getenv("WAVE_API_SECRET")
	cfg.OrangeMoneyAPIKey, cfg.OrangeMoneyAPISecret = os.Getenv("ORANGE_MONEY_API_KEY"), os.Getenv("ORANGE_MONEY_API_SECRET")
	cfg.AdminBootstrapSecret = os.Getenv("ADMIN_BOOTSTRAP_SECRET")

	if v, err := readIntEnv("WORKER_CONCURRENCY"); err != nil {
		return Config{}, fmt.Errorf("parse WORKER_CONCURRENCY: %w", err)
	} else if v != nil {
		cfg.WorkerConcurrency = *v
	}

	if v, err := readIntEnv("TOKEN_TTL_HOURS"); err != nil {
		return Config{}, fmt.Errorf("parse TOKEN_TTL_HOURS: %w", err)
	} else if v != nil {
		cfg.TokenTTL = time.Duration(*v) * time.Hour
	}

	if v, err := readIntEnv("PASSWORD_RESET_EXP_MINUTES"); err != nil {
		return Config{}, fmt.Errorf("parse PASSWORD_RESET_EXP_MINUTES: %w", err)
	} else if v != nil {
		cfg.PasswordResetTTL = time.Duration(*v) * time.Minute
	}

	switch cfg.RequestStore {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown REQUEST_STORE %q", cfg.RequestStore)
	}

	return cfg, nil
}

// DSN is the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c Config) Development() bool {
	return c.Env == "development"
}

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		return host + ":" + getEnv("REDIS_PORT", "6379")
	}
	return defaultRedisAddr
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func readIntEnv(key string) (*int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
