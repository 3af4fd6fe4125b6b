package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Outbound call timeout for the lock vendor, Smoobu and SMSFactor. None of
// these APIs specify a latency contract; a hung call must not hold the
// webhook request open.
const ExternalRequestTimeout = 15 * time.Second

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job interval for log retention
const RetentionJobInterval = 12 * time.Hour

// Lifetime for the cached lock-vendor JWT shared via redis
const LockTokenTTL = 30 * time.Minute
