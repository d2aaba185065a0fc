package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// ScanCount is the COUNT hint used when listing files
	ScanCount int64

	// Lock settings
	LockTTL        time.Duration
	LockRetryDelay time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		ScanCount:      100,
		LockTTL:        30 * time.Second,
		LockRetryDelay: 20 * time.Millisecond,
	}
}
