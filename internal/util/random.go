// Package util provides utility functions for the IntakeFlow application.
package util

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateSessionID generates a unique session ID with "intake_" prefix.
// Session ids are externally visible and long-lived, so they use UUIDv4
// entropy.
func GenerateSessionID() string {
	return "intake_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
