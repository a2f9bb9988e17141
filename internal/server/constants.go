// Package server provides the HTTP control API and the WebSocket decision feed
package server

import "time"

// Server configuration constants
const (
	// Decisions returned by /api/decisions when no limit is given
	DefaultDecisionLimit = 20

	// Per-connection WebSocket rate limiting
	RateLimitMessages = 10
	RateLimitWindow   = time.Second

	// Upper bound on a single broadcast write to a slow client
	BroadcastWriteTimeout = 2 * time.Second
)
