package config

import (
	"os"
	"strings"
)

func envFlag(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y" || v == "on"
}

// SyncBeforeReport asks the backend to refresh its aggregates (GET sync-details)
// before every monthly report fetch.
//
// Set via env:
// - SYNC_BEFORE_REPORT=true
func SyncBeforeReport() bool {
	return envFlag("SYNC_BEFORE_REPORT")
}

// ExportArchiveBucket returns the GCS bucket that exported workbooks are copied to.
// Empty disables archiving.
//
// Set via env:
// - EXPORT_ARCHIVE_BUCKET=my-bucket
func ExportArchiveBucket() string {
	return strings.TrimSpace(os.Getenv("EXPORT_ARCHIVE_BUCKET"))
}

// RateLimitEnabled gates the redis-backed inbound rate limiter.
//
// Set via env:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func RateLimitEnabled() bool {
	return envFlag("RATE_LIMIT_ENABLED")
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}
