package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string // FLEET_DATABASE_URL (required unless serving from memory)
	GRPCAddr    string // FLEET_GRPC_ADDR (default ":9090")
	HTTPAddr    string // FLEET_HTTP_ADDR (default ":8080")
	NATSURL     string // FLEET_NATS_URL (optional, empty = no events)
	AuthToken   string // FLEET_AUTH_TOKEN (optional, empty = auth disabled)

	MaxPerPage     int           // FLEET_MAX_PER_PAGE (default 100)
	HealthInterval time.Duration // FLEET_HEALTH_INTERVAL (default 10s)
	LogLevel       slog.Level    // FLEET_LOG_LEVEL (default "info")

	// Export upload settings
	ExportS3Bucket   string // FLEET_EXPORT_S3_BUCKET (enables uploads when set)
	ExportS3Endpoint string // FLEET_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string // FLEET_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Prefix   string // FLEET_EXPORT_S3_PREFIX (default "exports")
}

// Load reads the environment and requires a database URL.
func Load() (*Config, error) {
	c, err := Parse()
	if err != nil {
		return nil, err
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("FLEET_DATABASE_URL is required")
	}
	return c, nil
}

// Parse reads the environment without requiring a database URL.
func Parse() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("FLEET_DATABASE_URL"),
		GRPCAddr:         envOrDefault("FLEET_GRPC_ADDR", ":9090"),
		HTTPAddr:         envOrDefault("FLEET_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("FLEET_NATS_URL"),
		AuthToken:        os.Getenv("FLEET_AUTH_TOKEN"),
		ExportS3Bucket:   os.Getenv("FLEET_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("FLEET_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("FLEET_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Prefix:   envOrDefault("FLEET_EXPORT_S3_PREFIX", "exports"),
	}

	n, err := strconv.Atoi(envOrDefault("FLEET_MAX_PER_PAGE", "100"))
	if err != nil || n < 1 {
		return nil, fmt.Errorf("FLEET_MAX_PER_PAGE: must be a positive integer")
	}
	c.MaxPerPage = n

	d, err := time.ParseDuration(envOrDefault("FLEET_HEALTH_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("FLEET_HEALTH_INTERVAL: %w", err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("FLEET_HEALTH_INTERVAL: must be positive")
	}
	c.HealthInterval = d

	if err := c.LogLevel.UnmarshalText([]byte(envOrDefault("FLEET_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("FLEET_LOG_LEVEL: %w", err)
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
