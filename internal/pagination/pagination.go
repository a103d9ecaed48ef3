// Package pagination implements relay-style forward cursor pagination over
// the store's search results. Cursors are the base64 of the boundary
// entity's cursor-field value; dates travel as epoch milliseconds.
package pagination

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/yourorg/ephemeral-chats/internal/store"
	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

type CursorType int

const (
	CursorString CursorType = iota
	CursorNumber
	CursorDate
)

type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

type PageInfo struct {
	StartCursor     string `json:"startCursor"`
	EndCursor       string `json:"endCursor"`
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
}

type Page[T any] struct {
	Edges         []Edge[T] `json:"edges"`
	PageInfo      PageInfo  `json:"pageInfo"`
	CurrentCount  int64     `json:"currentCount"`
	PreviousCount int64     `json:"previousCount"`
}

func EncodeCursor(v any) string {
	var str string
	switch t := v.(type) {
	case time.Time:
		str = strconv.FormatInt(t.UnixMilli(), 10)
	case string:
		str = t
	case int:
		str = strconv.Itoa(t)
	case int64:
		str = strconv.FormatInt(t, 10)
	default:
		str = fmt.Sprint(t)
	}
	return base64.StdEncoding.EncodeToString([]byte(str))
}

// DecodeCursor rejects malformed cursors as a client error, never a server
// error.
func DecodeCursor(cursor string, ct CursorType) (any, error) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, apperrors.BadRequest("Cursor is invalid")
	}
	str := string(raw)
	switch ct {
	case CursorDate:
		ms, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, apperrors.BadRequest("Cursor does not reference a valid date")
		}
		return time.UnixMilli(ms).UTC(), nil
	case CursorNumber:
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, apperrors.BadRequest("Cursor does not reference a valid number")
		}
		return n, nil
	default:
		return str, nil
	}
}

// Paginate runs the two-query cursor algorithm: with an after cursor it
// counts entities strictly on the far side of the cursor for previousCount,
// then counts and slices the near side for the page itself. hasNextPage is
// currentCount > first — a count-then-slice design.
func Paginate[T store.Entity](
	ctx context.Context,
	repo *store.Repository[T],
	cursorField string,
	first int,
	order store.Order,
	build func(*store.Search[T]) *store.Search[T],
	after string,
	ct CursorType,
) (*Page[T], error) {
	var previousCount int64
	main := build(repo.Search())

	if after != "" {
		decoded, err := DecodeCursor(after, ct)
		if err != nil {
			return nil, err
		}
		inner := build(repo.Search())
		if order == store.OrderASC {
			main.And(cursorField).Gt(decoded)
			previousCount, err = inner.And(cursorField).Lt(decoded).Count(ctx)
		} else {
			main.And(cursorField).Lt(decoded)
			previousCount, err = inner.And(cursorField).Gt(decoded).Count(ctx)
		}
		if err != nil {
			return nil, err
		}
	}

	count, err := main.Count(ctx)
	if err != nil {
		return nil, err
	}
	entities, err := main.SortBy(cursorField, order).Page(ctx, first)
	if err != nil {
		return nil, err
	}

	return buildPage(repo, entities, count, previousCount, cursorField, first), nil
}

func buildPage[T store.Entity](
	repo *store.Repository[T],
	entities []T,
	currentCount, previousCount int64,
	cursorField string,
	first int,
) *Page[T] {
	page := &Page[T]{
		Edges:         []Edge[T]{},
		CurrentCount:  currentCount,
		PreviousCount: previousCount,
	}
	for _, e := range entities {
		val, _ := repo.Schema().Value(e, cursorField)
		page.Edges = append(page.Edges, Edge[T]{Node: e, Cursor: EncodeCursor(val)})
	}
	if len(page.Edges) > 0 {
		page.PageInfo.StartCursor = page.Edges[0].Cursor
		page.PageInfo.EndCursor = page.Edges[len(page.Edges)-1].Cursor
		page.PageInfo.HasNextPage = currentCount > int64(first)
		page.PageInfo.HasPreviousPage = previousCount > 0
	}
	return page
}
