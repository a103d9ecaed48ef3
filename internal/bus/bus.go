// Package bus is the change-notification bus: topic-keyed publish/subscribe
// over Redis with an optional per-subscription authorization filter evaluated
// at delivery time. Publishes on one topic are FIFO; delivery order across
// independent subscribers is unspecified.
package bus

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourorg/ephemeral-chats/internal/metrics"
	"github.com/yourorg/ephemeral-chats/internal/pagination"
	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

type ChangeType string

const (
	ChangeNew    ChangeType = "NEW"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Change is the envelope published for every mutation: a snapshot of the
// entity at publish time, its pagination cursor and the mutation kind.
type Change struct {
	Node   json.RawMessage `json:"node"`
	Cursor string          `json:"cursor"`
	Type   ChangeType      `json:"type"`
}

// NewChange snapshots node and encodes the cursor value it paginates under.
func NewChange(node any, cursorValue any, t ChangeType) (Change, error) {
	raw, err := json.Marshal(node)
	if err != nil {
		return Change{}, apperrors.Internal(err)
	}
	return Change{Node: raw, Cursor: pagination.EncodeCursor(cursorValue), Type: t}, nil
}

// Filter decides per delivered event whether a subscriber may see it. It is
// re-evaluated on every delivery so revoked membership cuts the stream off.
type Filter func(ctx context.Context, c Change) bool

type Bus struct {
	rdb redis.UniversalClient
	log *zap.SugaredLogger
}

func New(rdb redis.UniversalClient, log *zap.SugaredLogger) *Bus {
	return &Bus{rdb: rdb, log: log}
}

func (b *Bus) Publish(ctx context.Context, topic string, c Change) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return apperrors.Internal(err)
	}
	if err := b.rdb.Publish(ctx, topic, raw).Err(); err != nil {
		return apperrors.Internal(err)
	}
	metrics.ChangesPublished.WithLabelValues(topicKind(topic)).Inc()
	return nil
}

type Subscription struct {
	C     <-chan Change
	close func()
}

func (s *Subscription) Close() { s.close() }

// Subscribe delivers topic events that pass filter. A nil filter admits
// everything. Slow consumers lose events rather than blocking the bus.
func (b *Bus) Subscribe(ctx context.Context, topic string, filter Filter) *Subscription {
	ps := b.rdb.Subscribe(ctx, topic)
	out := make(chan Change, 16)
	kind := topicKind(topic)

	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				b.log.Warnw("discarding malformed change event", "topic", topic, "error", err)
				continue
			}
			if filter != nil && !filter(ctx, c) {
				continue
			}
			select {
			case out <- c:
				metrics.ChangesDelivered.WithLabelValues(kind).Inc()
			default:
				metrics.ChangesDropped.WithLabelValues(kind).Inc()
				b.log.Warnw("dropping change event, slow subscriber", "topic", topic)
			}
		}
	}()

	return &Subscription{C: out, close: func() { _ = ps.Close() }}
}

// Topic names are deterministic: entity kind prefix plus the scoping id,
// upper-cased.

func ChatTopic(chatID string) string {
	return "CHAT_" + strings.ToUpper(chatID)
}

func ProfilesTopic(chatID string) string {
	return "PROFILES_" + strings.ToUpper(chatID)
}

func MessagesTopic(chatID string) string {
	return "MESSAGES_" + strings.ToUpper(chatID)
}

func InviteTopic(userID string) string {
	return "INVITE_" + strings.ToUpper(userID)
}

func topicKind(topic string) string {
	if i := strings.IndexByte(topic, '_'); i > 0 {
		return topic[:i]
	}
	return topic
}
