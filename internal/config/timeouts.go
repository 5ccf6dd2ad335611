package config

import "time"

// TimeoutConfig holds timeout settings for the HTTP server.
type TimeoutConfig struct {
	// Read bounds reading a full request including the body.
	// Default: 15s
	Read time.Duration

	// Idle is how long keep-alive connections wait for the next request.
	// Default: 60s
	Idle time.Duration

	// Request bounds handler execution for non-streaming routes.
	// The event stream is exempt. Default: 30s
	Request time.Duration
}

// DefaultTimeoutConfig returns the default timeout configuration
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Read:    15 * time.Second,
		Idle:    60 * time.Second,
		Request: 30 * time.Second,
	}
}
