package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/ephemeral-chats/internal/bus"
	"github.com/yourorg/ephemeral-chats/internal/crypto"
	"github.com/yourorg/ephemeral-chats/internal/service"
	"github.com/yourorg/ephemeral-chats/internal/store"
	"github.com/yourorg/ephemeral-chats/internal/users"
)

// fakeDirectory is an in-memory user directory standing in for the external
// users service.
type fakeDirectory struct {
	users map[string]*users.User
}

func (f *fakeDirectory) UserByID(ctx context.Context, id string) (*users.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	return u, nil
}

type env struct {
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	store    *store.Store
	bus      *bus.Bus
	enc      *crypto.Encryptor
	chats    *service.ChatsService
	invites  *service.InvitesService
	messages *service.MessagesService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := zap.NewNop().Sugar()
	st := store.New(rdb, "test", log)
	b := bus.New(rdb, log)
	enc, err := crypto.New("test-master-password", "test-master-salt")
	require.NoError(t, err)

	dir := &fakeDirectory{users: map[string]*users.User{
		"userA": {ID: "userA", Name: "alice smith", Email: "alice@example.com"},
		"userB": {ID: "userB", Name: "bob jones", Email: "bob@example.com"},
		"userC": {ID: "userC", Name: "carol white", Email: "carol@example.com"},
	}}

	chats := service.NewChatsService(st, b, nil, enc, dir, log)
	invites := service.NewInvitesService(st, b, nil, chats, dir, nil, log)
	messages := service.NewMessagesService(st, b, nil, chats, enc, log)
	chats.Attach(messages, invites)

	ctx := context.Background()
	require.NoError(t, chats.CreateIndexes(ctx))
	require.NoError(t, invites.CreateIndexes(ctx))
	require.NoError(t, messages.CreateIndexes(ctx))

	return &env{mr: mr, rdb: rdb, store: st, bus: b, enc: enc, chats: chats, invites: invites, messages: messages}
}

func TestFormatTitle(t *testing.T) {
	assert.Equal(t, "Book Club", service.FormatTitle("  book   club "))
	assert.Equal(t, "Alice Smith", service.FormatTitle("alice smith"))
}

func TestPointSlug(t *testing.T) {
	assert.Equal(t, "book.club", service.PointSlug("Book Club"))
	assert.Equal(t, "a.b.c", service.PointSlug("a b c"))
}

func TestUniqueSlugDiffers(t *testing.T) {
	a := service.UniqueSlug("Alice Smith")
	b := service.UniqueSlug("Alice Smith")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "alice-smith-")
}

func TestFormatSearch(t *testing.T) {
	assert.Equal(t, "book club", service.FormatSearch("  Book   CLUB "))
}
