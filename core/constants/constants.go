package constants

import "time"

const (
	DefaultTimeout = 10 * time.Second

	// Database pool settings
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"

	// JWT token scopes
	ScopeTokenAccess  = "access"
	ScopeTokenRefresh = "refresh"

	// Redis key prefixes
	RedisKeyWaitlistRate = "waitlist:rate:"

	// Waitlist rate limiting
	WaitlistRateLimit  = 5
	WaitlistRateWindow = time.Minute

	// Calendar connection refresh sweep
	TokenRefreshWindow = 30 * time.Minute

	// Stripe webhook signature tolerance
	WebhookTimestampTolerance = 5 * time.Minute
)
