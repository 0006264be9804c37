package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
// It follows the 12-factor app methodology by prioritizing environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	S3       S3Config
	Upload   UploadConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type S3Config struct {
	Region      string
	Bucket      string
	AccessKey   string
	SecretKey   string
	Endpoint    string
	PresignTTL  time.Duration
	CallTimeout time.Duration
}

type UploadConfig struct {
	LockTTL         time.Duration
	InitRateLimit   int
	InitRateWindow  time.Duration
	SessionLifetime time.Duration
}

// LoadConfig loads configuration from environment variables.
// Defaults can be set here if needed.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "uploadgate"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		S3: S3Config{
			Region:      getEnv("S3_REGION", "us-east-1"),
			Bucket:      getEnv("S3_BUCKET", ""),
			AccessKey:   getEnv("S3_ACCESS_KEY", ""),
			SecretKey:   getEnv("S3_SECRET_KEY", ""),
			Endpoint:    getEnv("S3_ENDPOINT", ""),
			PresignTTL:  getEnvAsDuration("S3_PRESIGN_TTL", 150*time.Minute),
			CallTimeout: getEnvAsDuration("S3_CALL_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			LockTTL:         getEnvAsDuration("UPLOAD_LOCK_TTL", 15*time.Second),
			InitRateLimit:   getEnvAsInt("UPLOAD_INIT_RATE_LIMIT", 30),
			InitRateWindow:  getEnvAsDuration("UPLOAD_INIT_RATE_WINDOW", 60*time.Second),
			SessionLifetime: getEnvAsDuration("UPLOAD_SESSION_LIFETIME", 24*time.Hour),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
