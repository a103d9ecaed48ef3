// Package entity defines the ephemeral domain entities. All of them share a
// bounded time-to-live; the remaining lifetime is derived from createdAt and
// time, never stored.
package entity

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yourorg/ephemeral-chats/internal/expiry"
)

// MaxTime is the upper TTL bound for any entity, in seconds.
const MaxTime int64 = 86400

type Base struct {
	ID        string    `json:"entityId" validate:"required,len=26"`
	Time      int64     `json:"time" validate:"required,min=1,max=86400"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewBase mints a sortable id and stamps creation time. ttlSeconds is the
// entity's time window; the physical TTL is armed separately on save.
func NewBase(ttlSeconds int64) Base {
	// dates are kept at millisecond granularity, the precision date cursors
	// are encoded with
	now := time.Now().UTC().Truncate(time.Millisecond)
	return Base{
		ID:        ulid.Make().String(),
		Time:      ttlSeconds,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (b *Base) EntityID() string { return b.ID }

func (b *Base) SetEntityID(id string) { b.ID = id }

func (b *Base) Touch(now time.Time) { b.UpdatedAt = now }

// EndOfLife is the instant this entity dies.
func (b *Base) EndOfLife() time.Time {
	return expiry.EndOfLife(b.CreatedAt, b.Time)
}

// Expiration is the remaining lifetime in seconds; may be negative once the
// entity is logically dead.
func (b *Base) Expiration() int64 {
	return expiry.Remaining(b.EndOfLife(), time.Now().UTC())
}
