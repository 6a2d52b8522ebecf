package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-secret-change-me"

type Config struct {
	Env         string
	Port        int
	StoreDriver string

	DBURL string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret         string
	JWTAccessTTLHours int

	CORSOrigins []string

	RateLimitAuth   int
	RateLimitWindow time.Duration

	CacheTTL     time.Duration
	MaxBodyBytes int64

	AdminEmail    string
	AdminPassword string
	AdminUsername string

	OTelEndpoint    string
	OTelServiceName string
	OTelSampleRatio float64
}

func Load() Config {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env", "err", err)
	}

	return Config{
		Env:         getEnv("APP_ENV", "dev"),
		Port:        getEnvInt("PORT", 8080),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),

		DBURL: getEnv("DATABASE_URL", buildDBURL()),

		MongoURI: getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:  getEnv("MONGO_DB", "recipedia"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:         getEnv("JWT_SECRET", defaultJWTSecret),
		JWTAccessTTLHours: getEnvInt("JWT_ACCESS_TTL_HOURS", 24),

		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),

		RateLimitAuth:   getEnvInt("RATE_LIMIT_AUTH", 20),
		RateLimitWindow: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		CacheTTL:     time.Duration(getEnvInt("CACHE_TTL_SECONDS", 30)) * time.Second,
		MaxBodyBytes: int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "recipedia-api"),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),
	}
}

// Validate rejects configurations that must not reach production.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case "postgres", "mongo", "memory":
	default:
		return errors.New("STORE_DRIVER must be one of postgres, mongo, memory")
	}

	if c.Env == "prod" && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in prod")
	}

	if c.JWTAccessTTLHours <= 0 {
		return errors.New("JWT_ACCESS_TTL_HOURS must be positive")
	}

	return nil
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLHours) * time.Hour
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "recipedia")
	pass := getEnv("DB_PASSWORD", "recipedia")
	name := getEnv("DB_NAME", "recipedia")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer env value, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env value, using default", "key", key, "value", v)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
