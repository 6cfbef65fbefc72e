// Package config loads runtime settings from KTASKS_ environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // KTASKS_DATABASE_URL (required)
	NATSURL     string // KTASKS_NATS_URL (optional, empty = no events)

	// Recurrence sweep settings
	SweepInterval time.Duration // KTASKS_SWEEP_INTERVAL (default 5m; 0 = disabled)

	// Snapshot settings
	SnapshotInterval   time.Duration // KTASKS_SNAPSHOT_INTERVAL (default 3m; 0 = disabled)
	SnapshotS3Bucket   string        // KTASKS_SNAPSHOT_S3_BUCKET (enables S3 when set)
	SnapshotS3Endpoint string        // KTASKS_SNAPSHOT_S3_ENDPOINT (custom endpoint for MinIO)
	SnapshotS3Region   string        // KTASKS_SNAPSHOT_S3_REGION (default "us-east-1")
	SnapshotS3Key      string        // KTASKS_SNAPSHOT_S3_KEY (default "ktasks/board.jsonl")
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:        os.Getenv("KTASKS_DATABASE_URL"),
		NATSURL:            os.Getenv("KTASKS_NATS_URL"),
		SnapshotS3Bucket:   os.Getenv("KTASKS_SNAPSHOT_S3_BUCKET"),
		SnapshotS3Endpoint: os.Getenv("KTASKS_SNAPSHOT_S3_ENDPOINT"),
		SnapshotS3Region:   envOrDefault("KTASKS_SNAPSHOT_S3_REGION", "us-east-1"),
		SnapshotS3Key:      envOrDefault("KTASKS_SNAPSHOT_S3_KEY", "ktasks/board.jsonl"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("KTASKS_DATABASE_URL is required")
	}

	var err error
	if c.SweepInterval, err = durationEnv("KTASKS_SWEEP_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if c.SnapshotInterval, err = durationEnv("KTASKS_SNAPSHOT_INTERVAL", "3m"); err != nil {
		return nil, err
	}

	return c, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
