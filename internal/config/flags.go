package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/guestlens/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-driver string      metadata store driver ("sqlite", "postgres")
//	-d string           database DSN
//	-storage string     object store ("memory", "s3", "gcs")
//	-u string           S3 root user
//	-p string           S3 root password
//	-b string           S3 bucket name
//	-g string           S3 region
//	-e string           S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-gcs-bucket string  GCS bucket name
//	-public-url string  public URL prefix for stored objects
//	-owner string       owner id recorded on photos
//	-cd int             capture countdown, seconds
//	-rc int             review countdown, seconds
//	-width int          preferred camera width
//	-height int         preferred camera height
//	-facing string      initial facing mode ("environment", "user")
//	-q int              JPEG quality of captured frames
//	-timeout int        upload timeout, seconds
//	-l string           log level
//	-m string           metrics listen address (empty disables)
//	-data string        local data directory
//
// Only arguments naming these flags are parsed, so -c/-config and unknown
// flags do not cause errors here.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDriver, "driver", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "object storage backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.GCSBucket, "gcs-bucket", config.GCSBucket, "GCS bucket")
	fs.StringVar(&config.PublicBaseURL, "public-url", config.PublicBaseURL, "public URL prefix")
	fs.StringVar(&config.OwnerID, "owner", config.OwnerID, "owner id")
	fs.IntVar(&config.CaptureCountdown, "cd", config.CaptureCountdown, "capture countdown (in seconds)")
	fs.IntVar(&config.ReviewCountdown, "rc", config.ReviewCountdown, "review countdown (in seconds)")
	fs.IntVar(&config.CameraWidth, "width", config.CameraWidth, "preferred camera width")
	fs.IntVar(&config.CameraHeight, "height", config.CameraHeight, "preferred camera height")
	fs.StringVar(&config.CameraFacing, "facing", config.CameraFacing, "initial facing mode")
	fs.IntVar(&config.JPEGQuality, "q", config.JPEGQuality, "JPEG quality of captured frames")
	timeout := fs.Int("timeout", int(config.UploadTimeout.Seconds()), "upload timeout (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics listen address")
	fs.StringVar(&config.DataDir, "data", config.DataDir, "local data directory")

	if err := fs.Parse(flagx.FilterArgs(args, flagx.Names(fs))); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "timeout" {
			config.UploadTimeout = time.Duration(*timeout) * time.Second
		}
	})
}
