package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/guestlens/internal/flagx"
	"github.com/dmitrijs2005/guestlens/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Pointer fields
// distinguish "absent" from zero values, so a partial file only overrides
// what it names. Durations accept both "1s" strings and integer nanoseconds.
type JsonConfig struct {
	DatabaseDriver   *string         `json:"database_driver"`
	DatabaseDSN      *string         `json:"database_dsn"`
	StorageBackend   *string         `json:"storage_backend"`
	S3RootUser       *string         `json:"s3_root_user"`
	S3RootPassword   *string         `json:"s3_root_password"`
	S3Bucket         *string         `json:"s3_bucket"`
	S3Region         *string         `json:"s3_region"`
	S3BaseEndpoint   *string         `json:"s3_base_endpoint"`
	GCSBucket        *string         `json:"gcs_bucket"`
	PublicBaseURL    *string         `json:"public_base_url"`
	OwnerID          *string         `json:"owner_id"`
	CaptureCountdown *int            `json:"capture_countdown"`
	ReviewCountdown  *int            `json:"review_countdown"`
	CountdownTick    *timex.Duration `json:"countdown_tick"`
	CameraWidth      *int            `json:"camera_width"`
	CameraHeight     *int            `json:"camera_height"`
	CameraFacing     *string         `json:"camera_facing"`
	JPEGQuality      *int            `json:"jpeg_quality"`
	UploadTimeout    *timex.Duration `json:"upload_timeout"`
	LogLevel         *string         `json:"log_level"`
	MetricsAddr      *string         `json:"metrics_addr"`
	DataDir          *string         `json:"data_dir"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Without the flag nothing is loaded. An unreadable or malformed file panics,
// as the process cannot start with a configuration it was explicitly given.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.DatabaseDriver, c.DatabaseDriver)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.GCSBucket, c.GCSBucket)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.OwnerID, c.OwnerID)
	setInt(&config.CaptureCountdown, c.CaptureCountdown)
	setInt(&config.ReviewCountdown, c.ReviewCountdown)
	if c.CountdownTick != nil {
		config.CountdownTick = c.CountdownTick.Duration
	}
	setInt(&config.CameraWidth, c.CameraWidth)
	setInt(&config.CameraHeight, c.CameraHeight)
	setString(&config.CameraFacing, c.CameraFacing)
	setInt(&config.JPEGQuality, c.JPEGQuality)
	if c.UploadTimeout != nil {
		config.UploadTimeout = c.UploadTimeout.Duration
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DataDir, c.DataDir)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
