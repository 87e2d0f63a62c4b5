// Package config handles configuration for the booth client, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the capture and upload pipeline.
//
// Fields:
//   - DatabaseDriver / DatabaseDSN: metadata store ("sqlite" or "postgres").
//   - StorageBackend: object store ("memory", "s3" or "gcs").
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: S3-compatible backend.
//   - GCSBucket: bucket used when StorageBackend is "gcs".
//   - PublicBaseURL: overrides the URL prefix returned for stored objects.
//   - OwnerID: user id recorded on photos taken in this session.
//   - CaptureCountdown / ReviewCountdown / CountdownTick: booth timing.
//   - CameraWidth / CameraHeight / CameraFacing: preferred stream constraints.
//   - JPEGQuality: quality of captured frames before transcoding.
//   - UploadTimeout: upper bound for one transcode+upload job.
//   - LogLevel, MetricsAddr, DataDir: ambient settings.
type Config struct {
	DatabaseDriver   string
	DatabaseDSN      string
	StorageBackend   string
	S3RootUser       string
	S3RootPassword   string
	S3Bucket         string
	S3Region         string
	S3BaseEndpoint   string
	GCSBucket        string
	PublicBaseURL    string
	OwnerID          string
	CaptureCountdown int
	ReviewCountdown  int
	CountdownTick    time.Duration
	CameraWidth      int
	CameraHeight     int
	CameraFacing     string
	JPEGQuality      int
	UploadTimeout    time.Duration
	LogLevel         string
	MetricsAddr      string
	DataDir          string
}

// LoadDefaults populates Config with development defaults: a local SQLite
// file, in-memory object storage and the standard 5s/9s booth countdowns.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:guestlens.db"
	c.StorageBackend = "memory"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "photos"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.GCSBucket = ""
	c.PublicBaseURL = ""
	c.OwnerID = "guest"
	c.CaptureCountdown = 5
	c.ReviewCountdown = 9
	c.CountdownTick = 1 * time.Second
	c.CameraWidth = 1920
	c.CameraHeight = 1080
	c.CameraFacing = "environment"
	c.JPEGQuality = 92
	c.UploadTimeout = 30 * time.Second
	c.LogLevel = "info"
	c.MetricsAddr = ""
	c.DataDir = "data"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
