// Package service holds the domain services for chats, profiles, invites and
// messages. Services validate and authorize first, write to the store second
// and publish a change event last — never on a failed write.
package service

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/yourorg/ephemeral-chats/internal/bus"
	"github.com/yourorg/ephemeral-chats/internal/events"
	"github.com/yourorg/ephemeral-chats/internal/pagination"
	"github.com/yourorg/ephemeral-chats/internal/store"
	"github.com/yourorg/ephemeral-chats/internal/users"
)

// UserDirectory is the external identity collaborator.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (*users.User, error)
}

// QueryCursor selects which field a listing paginates on.
type QueryCursor string

const (
	CursorDate  QueryCursor = "DATE"
	CursorAlpha QueryCursor = "ALPHA"
)

func (q QueryCursor) Field() string {
	if q == CursorDate {
		return "createdAt"
	}
	return "slug"
}

func (q QueryCursor) Type() pagination.CursorType {
	if q == CursorDate {
		return pagination.CursorDate
	}
	return pagination.CursorString
}

// saveEntity is the single choke point for persisting an entity and re-arming
// its TTL. Skipping the expire step would leave the entity with a stale or
// missing physical TTL.
func saveEntity[T store.Entity](ctx context.Context, repo *store.Repository[T], e T, expiration int64) error {
	if err := repo.Save(ctx, e); err != nil {
		return err
	}
	return repo.Expire(ctx, e.EntityID(), expiration)
}

// notifier fans every successful mutation out to the real-time bus and,
// when configured, the Kafka integration stream.
type notifier struct {
	bus    *bus.Bus
	stream *events.Producer
	log    *zap.SugaredLogger
}

func (n *notifier) publish(ctx context.Context, topic string, node any, cursorValue any, t bus.ChangeType) {
	c, err := bus.NewChange(node, cursorValue, t)
	if err != nil {
		n.log.Errorw("building change event", "topic", topic, "error", err)
		return
	}
	if err := n.bus.Publish(ctx, topic, c); err != nil {
		n.log.Errorw("publishing change event", "topic", topic, "error", err)
	}
	if n.stream != nil {
		if err := n.stream.PublishChange(ctx, topic, c); err != nil {
			n.log.Warnw("appending change event to stream", "topic", topic, "error", err)
		}
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FormatTitle trims, collapses whitespace and capitalizes every word.
func FormatTitle(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	words := strings.Split(s, " ")
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// PointSlug derives a dotted slug from a display name: "Book Club" becomes
// "book.club".
func PointSlug(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", ".")
}

// UniqueSlug appends a short random suffix so regenerated slugs never clash.
func UniqueSlug(s string) string {
	return slug.Make(s + " " + uuid.NewString()[:6])
}

// FormatSearch normalizes a search term for case-insensitive contains
// matching.
func FormatSearch(s string) string {
	return strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " "))
}
