package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel slog.Level

	StoreBackend string
	StoreKey     string
	SeedOnEmpty  bool

	SQLitePath  string
	DatabaseURL string

	S3Bucket   string
	AWSRegion  string
	S3Endpoint string

	MinioEndpoint        string
	MinioAccessKeyID     string
	MinioSecretAccessKey string
	MinioBucket          string
	MinioUseSSL          bool

	MongoURL      string
	MongoDatabase string

	RabbitMQURL string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Default().Warn("loading .env failed", "error", err)
	}

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: parseLevel(getEnv("LOG_LEVEL", "info")),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
		StoreKey:     getEnv("STORE_KEY", "blogs"),
		SeedOnEmpty:  getBool("SEED_ON_EMPTY", true),

		SQLitePath:  getEnv("SQLITE_PATH", "data/blogs.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		S3Bucket:   getEnv("S3_BUCKET", ""),
		AWSRegion:  getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint: getEnv("S3_ENDPOINT", ""),

		MinioEndpoint:        getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKeyID:     getEnv("MINIO_ACCESS_KEY_ID", ""),
		MinioSecretAccessKey: getEnv("MINIO_SECRET_ACCESS_KEY", ""),
		MinioBucket:          getEnv("MINIO_BUCKET", "blogdesk"),
		MinioUseSSL:          getBool("MINIO_USE_SSL", false),

		MongoURL:      getEnv("MONGO_URL", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "blogdesk"),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
