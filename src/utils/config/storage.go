package config

import (
	"time"

	"github.com/spf13/viper"
)

type Storage struct {
	// AWS region the buckets live in
	Region string

	// Custom endpoint, used with S3-compatible stores in development
	Endpoint string

	// Bucket holding the generated certificates, readable without auth
	PublicBucket string

	// Bucket holding the uploaded evidence photos
	PrivateBucket string

	// Per-upload deadline
	UploadTimeout time.Duration

	// Upload backoff configuration, 0 is no limit
	MaxElapsedTime time.Duration
	MaxInterval    time.Duration
}

func setStorageDefaults() {
	viper.SetDefault("Storage.Region", "us-east-1")
	viper.SetDefault("Storage.Endpoint", "")
	viper.SetDefault("Storage.PublicBucket", "detrash-public")
	viper.SetDefault("Storage.PrivateBucket", "detrash-prod")
	viper.SetDefault("Storage.UploadTimeout", "30s")
	viper.SetDefault("Storage.MaxElapsedTime", "2m")
	viper.SetDefault("Storage.MaxInterval", "15s")
}
