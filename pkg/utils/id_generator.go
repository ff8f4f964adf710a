// Package utils provides small helpers shared across the application.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// Prefixes make an identifier's kind obvious in logs and URLs.
const (
	SessionIDPrefix    = "ses_"
	SavedPlaceIDPrefix = "plc_"
)

// NewSessionID returns a random map session identifier.
//
// Go Learning Note — "github.com/google/uuid":
// uuid.NewString() returns a random (v4) RFC 4122 UUID as a string. Random IDs
// need no central counter, which suits sessions created concurrently by many
// HTTP handlers.
func NewSessionID() string {
	return SessionIDPrefix + uuid.NewString()
}

// NewSavedPlaceID returns a random saved-place identifier.
func NewSavedPlaceID() string {
	return SavedPlaceIDPrefix + uuid.NewString()
}

// HasIDPrefix reports whether id has the given prefix followed by a valid UUID.
func HasIDPrefix(id, prefix string) bool {
	if !strings.HasPrefix(id, prefix) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(id, prefix))
	return err == nil
}
