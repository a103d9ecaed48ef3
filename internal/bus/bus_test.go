package bus_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/ephemeral-chats/internal/bus"
)

type node struct {
	ID   string `json:"entityId"`
	Name string `json:"name"`
}

func newTestBus(t *testing.T) *bus.Bus {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return bus.New(rdb, zap.NewNop().Sugar())
}

func receive(t *testing.T, sub *bus.Subscription) bus.Change {
	t.Helper()
	select {
	case c := <-sub.C:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
		return bus.Change{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	sub := b.Subscribe(ctx, bus.ChatTopic("abc"), nil)
	defer sub.Close()
	time.Sleep(50 * time.Millisecond) // let the subscription register

	c, err := bus.NewChange(&node{ID: "abc", Name: "Book Club"}, "cursor", bus.ChangeNew)
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, bus.ChatTopic("abc"), c))

	got := receive(t, sub)
	assert.Equal(t, bus.ChangeNew, got.Type)

	var n node
	require.NoError(t, json.Unmarshal(got.Node, &n))
	assert.Equal(t, "Book Club", n.Name)
}

func TestSubscribeFilterDropsUnauthorized(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	var allowed bool
	sub := b.Subscribe(ctx, bus.MessagesTopic("chat1"), func(ctx context.Context, c bus.Change) bool {
		return allowed
	})
	defer sub.Close()
	time.Sleep(50 * time.Millisecond)

	c, err := bus.NewChange(&node{ID: "m1"}, "c1", bus.ChangeNew)
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, bus.MessagesTopic("chat1"), c))

	select {
	case <-sub.C:
		t.Fatal("filtered event must not be delivered")
	case <-time.After(200 * time.Millisecond):
	}

	// the filter runs per delivery, so flipping authorization opens the stream
	allowed = true
	require.NoError(t, b.Publish(ctx, bus.MessagesTopic("chat1"), c))
	got := receive(t, sub)
	assert.Equal(t, bus.ChangeNew, got.Type)
}

func TestTopicsAreUppercased(t *testing.T) {
	assert.Equal(t, "CHAT_01ABC", bus.ChatTopic("01abc"))
	assert.Equal(t, "PROFILES_01ABC", bus.ProfilesTopic("01abc"))
	assert.Equal(t, "MESSAGES_01ABC", bus.MessagesTopic("01abc"))
	assert.Equal(t, "INVITE_USER1", bus.InviteTopic("user1"))
}

func TestTopicsScopedById(t *testing.T) {
	b := newTestBus(t)
	ctx := context.Background()

	sub := b.Subscribe(ctx, bus.MessagesTopic("chat1"), nil)
	defer sub.Close()
	time.Sleep(50 * time.Millisecond)

	c, err := bus.NewChange(&node{ID: "m1"}, "c1", bus.ChangeNew)
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, bus.MessagesTopic("chat2"), c))

	select {
	case <-sub.C:
		t.Fatal("event for another chat must not be delivered")
	case <-time.After(200 * time.Millisecond):
	}
}
