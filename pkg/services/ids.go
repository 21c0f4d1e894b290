// Package services implements the business logic over the persistence
// adapter: event intake, profile management, retrieval and ranking,
// feedback, and schedules.
package services

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// newID returns "<prefix>-<32 hex chars>".
func newID(prefix string) string {
	id := uuid.New()
	return prefix + "-" + hex.EncodeToString(id[:])
}

// epochNow returns the current time as epoch seconds.
func epochNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
