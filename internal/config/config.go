package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // WARMPATH_DATABASE_URL (required)
	HTTPAddr    string // WARMPATH_HTTP_ADDR (default ":8080")
	NATSURL     string // WARMPATH_NATS_URL (optional, empty = no events)
	AuthToken   string // WARMPATH_AUTH_TOKEN (optional, empty = auth disabled)
	Metrics     bool   // WARMPATH_METRICS ("1" or "true" enables /metrics)

	// Sweeper settings
	SweepInterval time.Duration // WARMPATH_SWEEP_INTERVAL (default 1m; 0 = disabled)

	// Backup settings
	BackupInterval time.Duration // WARMPATH_BACKUP_INTERVAL (default 15m; 0 = disabled)
	S3Bucket       string        // WARMPATH_S3_BUCKET (enables S3 backup when set)
	S3Endpoint     string        // WARMPATH_S3_ENDPOINT (custom endpoint for MinIO)
	S3Region       string        // WARMPATH_S3_REGION (default "us-east-1")
	S3Key          string        // WARMPATH_S3_KEY (default "warmpath/backup.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL: os.Getenv("WARMPATH_DATABASE_URL"),
		HTTPAddr:    envOrDefault("WARMPATH_HTTP_ADDR", ":8080"),
		NATSURL:     os.Getenv("WARMPATH_NATS_URL"),
		AuthToken:   os.Getenv("WARMPATH_AUTH_TOKEN"),
		Metrics:     envBool("WARMPATH_METRICS"),
		S3Bucket:    os.Getenv("WARMPATH_S3_BUCKET"),
		S3Endpoint:  os.Getenv("WARMPATH_S3_ENDPOINT"),
		S3Region:    envOrDefault("WARMPATH_S3_REGION", "us-east-1"),
		S3Key:       envOrDefault("WARMPATH_S3_KEY", "warmpath/backup.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("WARMPATH_DATABASE_URL is required")
	}

	var err error
	c.SweepInterval, err = envDuration("WARMPATH_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	c.BackupInterval, err = envDuration("WARMPATH_BACKUP_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
