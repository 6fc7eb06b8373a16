package constants

import "time"

// Global rate limit applied to routes without their own limiter.
const (
	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = time.Minute
)

const (
	DefaultRequestTimeout        = 30 * time.Second
	DefaultMaxRequestBodyBytes   = 1 << 20
	DefaultHSTSMaxAgeSeconds     = 31536000
	DefaultEmailSendTimeout      = 10 * time.Second
	DefaultAuthTokenTTL          = 24 * time.Hour
	DefaultPasswordResetTokenTTL = time.Hour
	DefaultShutdownTimeout       = 30 * time.Second
)
