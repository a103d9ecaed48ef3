// Package expiry holds the pure lifetime arithmetic shared by all ephemeral
// entities. The remaining lifetime is always derived from the creation time
// and the entity's time-to-live, never stored.
package expiry

import "time"

// EndOfLife is the instant an entity becomes eligible for removal.
func EndOfLife(createdAt time.Time, ttlSeconds int64) time.Time {
	return time.Unix(createdAt.Unix()+ttlSeconds, 0)
}

// Remaining returns the seconds left until endOfLife. The result can be
// negative: the entity is logically dead but the store's reaper may not have
// removed it yet. Callers treat <= 0 as absent.
func Remaining(endOfLife, now time.Time) int64 {
	return endOfLife.Unix() - now.Unix()
}
