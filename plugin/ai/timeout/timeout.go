// Package timeout defines centralized timeout constants for AI operations.
package timeout

import "time"

// AI operation timeout constants.
const (
	// ExtractionTimeout bounds a single completion call so a hung provider cannot hold a request.
	ExtractionTimeout = 30 * time.Second

	// StorageTimeout bounds a single briefing or persistence query.
	StorageTimeout = 10 * time.Second

	// ShutdownTimeout is the grace period for in-flight requests on shutdown.
	ShutdownTimeout = 10 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs.
	MaxTruncateLength = 200
)

// Truncate shortens s to MaxTruncateLength runes for logging.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxTruncateLength {
		return s
	}
	return string(runes[:MaxTruncateLength]) + "..."
}
