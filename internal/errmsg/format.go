// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Scan operations
	OpScan Op = "scan audio files"

	// Tag operations
	OpReadIdentity Op = "read file identity"
	OpBackupTags   Op = "back up tags"
	OpRestoreTags  Op = "restore tags"
	OpClassifyTags Op = "classify tags"
	OpPruneTags    Op = "prune exotic tags"
	OpWriteRating  Op = "write rating tags"

	// Cache operations
	OpCacheOpen  Op = "open rating cache"
	OpCacheRead  Op = "read rating cache"
	OpCacheWrite Op = "update rating cache"

	// MusicBrainz operations
	OpLookupRating        Op = "look up recording rating"
	OpSearchRecording     Op = "search recording"
	OpResolveReleaseGroup Op = "resolve release group"
	OpLookupGroupRating   Op = "look up release group rating"

	// Output operations
	OpWriteReport Op = "write report"
	OpWriteLog    Op = "write run log"

	// Initialization
	OpLoadConfig Op = "load configuration"
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
