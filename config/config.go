package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Market     MarketConfig
	RateLimit  RateLimitConfig
	Redis      RedisConfig
	Cloudinary CloudinaryConfig
	Jobs       JobsConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver string // postgres or sqlite
	URL    string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
	CookieName  string
}

// MarketConfig holds the marketplace rules that are tunable per deployment.
type MarketConfig struct {
	Timezone        string
	SearchResultCap int
	LateCancelHours int
}

// Location resolves the configured time zone, falling back to UTC.
func (m MarketConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type RateLimitConfig struct {
	Store          string // memory or redis
	Window         time.Duration
	AdminLimit     int
	IncidentLimit  int
	CreateLimit    int
	RequestsPerSec float64
	Burst          int
}

type RedisConfig struct {
	URL string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether all Cloudinary credentials are present.
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type JobsConfig struct {
	QueueName         string
	Concurrency       int
	ReconcileInterval time.Duration
}

var AppConfig *Config

func Load() *Config {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			GinMode:        getEnv("GIN_MODE", "debug"),
			Env:            getEnv("APP_ENV", "development"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8081"}),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			URL:    getEnv("DB_URL", ""),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-this-secret-in-production"),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24*7),
			CookieName:  getEnv("JWT_COOKIE_NAME", "dular_token"),
		},
		Market: MarketConfig{
			Timezone:        getEnv("APP_TIMEZONE", "America/Cuiaba"),
			SearchResultCap: getEnvAsInt("SEARCH_RESULT_CAP", 50),
			LateCancelHours: getEnvAsInt("LATE_CANCEL_HOURS", 12),
		},
		RateLimit: RateLimitConfig{
			Store:          getEnv("RATE_LIMIT_STORE", "memory"),
			Window:         getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			AdminLimit:     getEnvAsInt("ADMIN_RATE_LIMIT", 30),
			IncidentLimit:  getEnvAsInt("INCIDENT_RATE_LIMIT", 10),
			CreateLimit:    getEnvAsInt("CREATE_RATE_LIMIT", 20),
			RequestsPerSec: getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst:          getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
			Folder:    getEnv("CLOUDINARY_FOLDER", "incidents"),
		},
		Jobs: JobsConfig{
			QueueName:         getEnv("ASYNQ_QUEUE", "recompute"),
			Concurrency:       getEnvAsInt("ASYNQ_CONCURRENCY", 5),
			ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 6*time.Hour),
		},
	}
	return AppConfig
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
