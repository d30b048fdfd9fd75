package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Firebase   FirebaseConfig
	Storage    StorageConfig
	Admin      AdminConfig
	RateLimit  RateLimitConfig
	Upload     UploadConfig
	Revalidate RevalidateConfig
	App        AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type FirebaseConfig struct {
	CredentialsPath string
}

type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

type AdminConfig struct {
	Emails []string
}

type RateLimitConfig struct {
	WindowMs    int
	MaxRequests int
	SweepEvery  int
}

type UploadConfig struct {
	MaxFileBytes int64
	MaxImages    int
}

type RevalidateConfig struct {
	BaseURL string
	Secret  string
	RPS     float64
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("STORAGE_BUCKET", ""),
			Region:        getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
		},
		Admin: AdminConfig{
			Emails: getEnvAsList("ADMIN_EMAILS", nil),
		},
		RateLimit: RateLimitConfig{
			WindowMs:    getEnvAsInt("RATE_LIMIT_WINDOW_MS", 60000),
			MaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 60),
			SweepEvery:  getEnvAsInt("RATE_LIMIT_SWEEP_EVERY", 128),
		},
		Upload: UploadConfig{
			MaxFileBytes: getEnvAsInt64("UPLOAD_MAX_FILE_BYTES", 50<<20),
			MaxImages:    getEnvAsInt("UPLOAD_MAX_IMAGES", 10),
		},
		Revalidate: RevalidateConfig{
			BaseURL: getEnv("REVALIDATE_BASE_URL", ""),
			Secret:  getEnv("REVALIDATE_SECRET", ""),
			RPS:     getEnvAsFloat("REVALIDATE_RPS", 2),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required")
	}

	if c.Storage.PublicBaseURL == "" {
		return fmt.Errorf("STORAGE_PUBLIC_BASE_URL is required")
	}

	if c.RateLimit.WindowMs <= 0 || c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate limit window and max requests must be positive")
	}

	return nil
}

// RateLimitWindow returns the fixed window length as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid number for %s, using default: %v", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
