package pagination_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/ephemeral-chats/internal/pagination"
	"github.com/yourorg/ephemeral-chats/internal/store"
	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

type item struct {
	ID        string    `json:"entityId" validate:"required"`
	Time      int64     `json:"time" validate:"required,min=1"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Slug      string    `json:"slug" validate:"required"`
}

func (i *item) EntityID() string      { return i.ID }
func (i *item) SetEntityID(id string) { i.ID = id }
func (i *item) Touch(now time.Time)   { i.UpdatedAt = now }

func newPagingRepo(t *testing.T, n int) *store.Repository[*item] {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	st := store.New(rdb, "test", zap.NewNop().Sugar())
	repo := store.NewRepository(st, store.NewSchema[*item]("item", "slug"))
	require.NoError(t, repo.CreateIndex(context.Background()))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		it := &item{
			ID:        fmt.Sprintf("id%03d", i),
			Time:      3600,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
			UpdatedAt: base,
			Slug:      fmt.Sprintf("slug%03d", i),
		}
		require.NoError(t, repo.Save(context.Background(), it))
	}
	return repo
}

func identity(s *store.Search[*item]) *store.Search[*item] { return s }

func TestPaginateFirstPage(t *testing.T) {
	repo := newPagingRepo(t, 25)

	page, err := pagination.Paginate(context.Background(), repo, "createdAt", 10,
		store.OrderDESC, identity, "", pagination.CursorDate)
	require.NoError(t, err)

	assert.Len(t, page.Edges, 10)
	assert.Equal(t, int64(25), page.CurrentCount)
	assert.Zero(t, page.PreviousCount)
	assert.True(t, page.PageInfo.HasNextPage)
	assert.False(t, page.PageInfo.HasPreviousPage)
	assert.Equal(t, page.Edges[0].Cursor, page.PageInfo.StartCursor)
	assert.Equal(t, page.Edges[9].Cursor, page.PageInfo.EndCursor)
	// newest first
	assert.Equal(t, "id024", page.Edges[0].Node.ID)
}

// Walking forward with after = the previous endCursor must visit every item
// exactly once.
func TestPaginateRoundTrip(t *testing.T) {
	repo := newPagingRepo(t, 25)
	ctx := context.Background()

	seen := make(map[string]bool)
	after := ""
	for {
		page, err := pagination.Paginate(ctx, repo, "createdAt", 10,
			store.OrderASC, identity, after, pagination.CursorDate)
		require.NoError(t, err)
		for _, edge := range page.Edges {
			assert.False(t, seen[edge.Node.ID], "item %s seen twice", edge.Node.ID)
			seen[edge.Node.ID] = true
		}
		if !page.PageInfo.HasNextPage {
			break
		}
		after = page.PageInfo.EndCursor
	}
	assert.Len(t, seen, 25)
}

// Stored dates may carry fractions finer than the millisecond the cursor
// encodes; the boundary item must still be excluded on the next page.
func TestPaginateSubMillisecondStamps(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	st := store.New(rdb, "test", zap.NewNop().Sugar())
	repo := store.NewRepository(st, store.NewSchema[*item]("item", "slug"))
	ctx := context.Background()
	require.NoError(t, repo.CreateIndex(ctx))

	base := time.Date(2024, 5, 1, 12, 0, 0, 123456, time.UTC)
	for i := 0; i < 6; i++ {
		it := &item{
			ID:        fmt.Sprintf("id%03d", i),
			Time:      3600,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt: base,
			Slug:      fmt.Sprintf("slug%03d", i),
		}
		require.NoError(t, repo.Save(ctx, it))
	}

	seen := make(map[string]bool)
	after := ""
	for {
		page, err := pagination.Paginate(ctx, repo, "createdAt", 2,
			store.OrderASC, identity, after, pagination.CursorDate)
		require.NoError(t, err)
		for _, edge := range page.Edges {
			assert.False(t, seen[edge.Node.ID], "item %s seen twice", edge.Node.ID)
			seen[edge.Node.ID] = true
		}
		if !page.PageInfo.HasNextPage {
			break
		}
		after = page.PageInfo.EndCursor
	}
	assert.Len(t, seen, 6)
}

func TestPaginateSecondPageCounts(t *testing.T) {
	repo := newPagingRepo(t, 25)
	ctx := context.Background()

	first, err := pagination.Paginate(ctx, repo, "createdAt", 10,
		store.OrderASC, identity, "", pagination.CursorDate)
	require.NoError(t, err)

	second, err := pagination.Paginate(ctx, repo, "createdAt", 10,
		store.OrderASC, identity, first.PageInfo.EndCursor, pagination.CursorDate)
	require.NoError(t, err)

	assert.Len(t, second.Edges, 10)
	assert.Equal(t, int64(15), second.CurrentCount)
	assert.Equal(t, int64(10), second.PreviousCount)
	assert.True(t, second.PageInfo.HasNextPage)
	assert.True(t, second.PageInfo.HasPreviousPage)
}

func TestPaginateLastPage(t *testing.T) {
	repo := newPagingRepo(t, 15)
	ctx := context.Background()

	first, err := pagination.Paginate(ctx, repo, "createdAt", 10,
		store.OrderASC, identity, "", pagination.CursorDate)
	require.NoError(t, err)

	last, err := pagination.Paginate(ctx, repo, "createdAt", 10,
		store.OrderASC, identity, first.PageInfo.EndCursor, pagination.CursorDate)
	require.NoError(t, err)

	assert.Len(t, last.Edges, 5)
	assert.False(t, last.PageInfo.HasNextPage)
	assert.True(t, last.PageInfo.HasPreviousPage)
}

func TestPaginateStringCursor(t *testing.T) {
	repo := newPagingRepo(t, 5)
	ctx := context.Background()

	first, err := pagination.Paginate(ctx, repo, "slug", 2,
		store.OrderASC, identity, "", pagination.CursorString)
	require.NoError(t, err)
	require.Len(t, first.Edges, 2)
	assert.Equal(t, "slug000", first.Edges[0].Node.Slug)

	second, err := pagination.Paginate(ctx, repo, "slug", 2,
		store.OrderASC, identity, first.PageInfo.EndCursor, pagination.CursorString)
	require.NoError(t, err)
	require.Len(t, second.Edges, 2)
	assert.Equal(t, "slug002", second.Edges[0].Node.Slug)
}

func TestPaginateEmptyResult(t *testing.T) {
	repo := newPagingRepo(t, 0)

	page, err := pagination.Paginate(context.Background(), repo, "createdAt", 10,
		store.OrderASC, identity, "", pagination.CursorDate)
	require.NoError(t, err)

	assert.Empty(t, page.Edges)
	assert.Empty(t, page.PageInfo.StartCursor)
	assert.Empty(t, page.PageInfo.EndCursor)
	assert.False(t, page.PageInfo.HasNextPage)
	assert.False(t, page.PageInfo.HasPreviousPage)
}

func TestPaginateInvalidCursor(t *testing.T) {
	repo := newPagingRepo(t, 3)

	_, err := pagination.Paginate(context.Background(), repo, "createdAt", 10,
		store.OrderASC, identity, "not-base64!!", pagination.CursorDate)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestDecodeCursorKinds(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	enc := pagination.EncodeCursor(ts)
	decoded, err := pagination.DecodeCursor(enc, pagination.CursorDate)
	require.NoError(t, err)
	assert.True(t, ts.Equal(decoded.(time.Time)))

	enc = pagination.EncodeCursor("abc")
	decoded, err = pagination.DecodeCursor(enc, pagination.CursorString)
	require.NoError(t, err)
	assert.Equal(t, "abc", decoded)

	enc = pagination.EncodeCursor(int64(42))
	decoded, err = pagination.DecodeCursor(enc, pagination.CursorNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(42), decoded)
}
