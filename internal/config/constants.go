package config

import "time"

const (
	// Service name reported by /health and used as the cache key prefix
	ServiceName = "invoicing"

	// Invoice listing pagination
	DefaultPageSize = 50
	MaxPageSize     = 100

	// Line items requested per page from the order service
	LineItemPageSize = 100

	// Most line-item pages one order may span; a larger page count from the
	// order service is treated as a malformed response
	MaxLineItemPages = 100

	// Concurrent line-item page requests per settlement
	LineItemFetchConcurrency = 4

	// Compare-and-swap attempts before a status change reports a conflict
	TransitionAttempts = 3

	// Maximum time the order status mirror may take per notification
	MirrorTimeout = 10 * time.Second

	// Time allowed for pending mirror notifications on shutdown
	MirrorDrainTimeout = 15 * time.Second

	// Time allowed for a Telegram alert
	AlertTimeout = 10 * time.Second

	// HTTP server
	ReadHeaderTimeout = 5 * time.Second
	RequestTimeout    = 30 * time.Second
	ShutdownTimeout   = 10 * time.Second
)
