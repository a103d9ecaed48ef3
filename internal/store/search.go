package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

type Order string

const (
	OrderASC  Order = "ASC"
	OrderDESC Order = "DESC"
)

func (o Order) Opposite() Order {
	if o == OrderASC {
		return OrderDESC
	}
	return OrderASC
}

type compareOp int

const (
	opEq compareOp = iota
	opContains
	opGt
	opLt
)

type condition struct {
	field string
	op    compareOp
	value any
	or    bool
}

// Search accumulates conditions against one entity kind. Equality conditions
// on indexed fields narrow the candidate set with set intersection; every
// other condition is applied after loading. Expired ids found in the index
// are dropped and lazily removed.
type Search[T Entity] struct {
	repo      *Repository[T]
	conds     []condition
	sortField string
	sortOrder Order
}

type Cond[T Entity] struct {
	s     *Search[T]
	field string
	or    bool
}

func (s *Search[T]) Where(field string) *Cond[T] {
	return &Cond[T]{s: s, field: field}
}

func (s *Search[T]) And(field string) *Cond[T] {
	return &Cond[T]{s: s, field: field}
}

func (s *Search[T]) Or(field string) *Cond[T] {
	return &Cond[T]{s: s, field: field, or: true}
}

func (c *Cond[T]) add(op compareOp, v any) *Search[T] {
	c.s.conds = append(c.s.conds, condition{field: c.field, op: op, value: v, or: c.or})
	return c.s
}

func (c *Cond[T]) Equals(v any) *Search[T] { return c.add(opEq, v) }

func (c *Cond[T]) Contains(v string) *Search[T] { return c.add(opContains, v) }

func (c *Cond[T]) Gt(v any) *Search[T] { return c.add(opGt, v) }

func (c *Cond[T]) Lt(v any) *Search[T] { return c.add(opLt, v) }

func (s *Search[T]) SortBy(field string, order Order) *Search[T] {
	s.sortField = field
	s.sortOrder = order
	return s
}

func (s *Search[T]) Count(ctx context.Context) (int64, error) {
	all, err := s.fetch(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

func (s *Search[T]) All(ctx context.Context) ([]T, error) {
	return s.fetch(ctx)
}

// Page returns the first limit entities in sort order.
func (s *Search[T]) Page(ctx context.Context, limit int) ([]T, error) {
	all, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Search[T]) First(ctx context.Context) (T, bool, error) {
	var zero T
	all, err := s.fetch(ctx)
	if err != nil {
		return zero, false, err
	}
	if len(all) == 0 {
		return zero, false, nil
	}
	return all[0], true, nil
}

func (s *Search[T]) FirstID(ctx context.Context) (string, bool, error) {
	e, found, err := s.First(ctx)
	if err != nil || !found {
		return "", found, err
	}
	return e.EntityID(), true, nil
}

func (s *Search[T]) AllIDs(ctx context.Context) ([]string, error) {
	all, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for _, e := range all {
		ids = append(ids, e.EntityID())
	}
	return ids, nil
}

func (s *Search[T]) fetch(ctx context.Context) ([]T, error) {
	ids, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []T{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.repo.key(id)
	}
	raws, err := s.repo.s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	out := make([]T, 0, len(ids))
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			// expired between index read and load; heal the index lazily
			s.repo.s.rdb.SRem(ctx, s.repo.allKey(), ids[i])
			continue
		}
		e, err := s.repo.decode([]byte(str))
		if err != nil {
			return nil, err
		}
		if s.matches(e) {
			out = append(out, e)
		}
	}
	if s.sortField != "" {
		s.sortEntities(out)
	}
	return out, nil
}

// candidates narrows ids with SINTER when the whole query is AND-equality on
// indexed fields; everything else scans the kind's id set.
func (s *Search[T]) candidates(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.conds))
	intersectable := len(s.conds) > 0
	for _, c := range s.conds {
		if c.or || c.op != opEq || !s.indexed(c.field) {
			intersectable = false
			break
		}
		keys = append(keys, s.repo.idxKey(c.field, c.value))
	}

	var cmd *redis.StringSliceCmd
	if intersectable {
		cmd = s.repo.s.rdb.SInter(ctx, keys...)
	} else {
		cmd = s.repo.s.rdb.SMembers(ctx, s.repo.allKey())
	}
	ids, err := cmd.Result()
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return ids, nil
}

func (s *Search[T]) indexed(field string) bool {
	for _, f := range s.repo.schema.indexed {
		if f == field {
			return true
		}
	}
	return false
}

func (s *Search[T]) matches(e T) bool {
	if len(s.conds) == 0 {
		return true
	}
	result := s.evalCond(e, s.conds[0])
	for _, c := range s.conds[1:] {
		if c.or {
			result = result || s.evalCond(e, c)
		} else {
			result = result && s.evalCond(e, c)
		}
	}
	return result
}

func (s *Search[T]) evalCond(e T, c condition) bool {
	raw, ok := s.repo.schema.Value(e, c.field)
	if !ok {
		return false
	}
	switch c.op {
	case opEq:
		return equals(raw, c.value)
	case opContains:
		fv, ok := normalize(raw).(string)
		cv, _ := normalize(c.value).(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(fv), strings.ToLower(cv))
	case opGt:
		cmp, ok := compare(raw, c.value)
		return ok && cmp > 0
	case opLt:
		cmp, ok := compare(raw, c.value)
		return ok && cmp < 0
	}
	return false
}

func (s *Search[T]) sortEntities(list []T) {
	asc := s.sortOrder != OrderDESC
	sort.SliceStable(list, func(i, j int) bool {
		a, _ := s.repo.schema.Value(list[i], s.sortField)
		b, _ := s.repo.schema.Value(list[j], s.sortField)
		cmp, ok := compare(a, b)
		if !ok {
			return false
		}
		if asc {
			return cmp < 0
		}
		return cmp > 0
	})
}

func equals(a, b any) bool {
	if cmp, ok := compare(a, b); ok {
		return cmp == 0
	}
	return false
}

func compare(a, b any) (int, bool) {
	na, nb := normalize(a), normalize(b)
	switch av := na.(type) {
	case string:
		bv, ok := nb.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case int64:
		switch bv := nb.(type) {
		case int64:
			return cmpInt(av, bv), true
		case float64:
			return cmpFloat(float64(av), bv), true
		}
		return 0, false
	case float64:
		switch bv := nb.(type) {
		case int64:
			return cmpFloat(av, float64(bv)), true
		case float64:
			return cmpFloat(av, bv), true
		}
		return 0, false
	case time.Time:
		bv, ok := nb.(time.Time)
		if !ok {
			return 0, false
		}
		// date cursors travel as epoch milliseconds; finer fractions must not
		// make a decoded cursor compare unequal to the value it was cut from
		return av.Truncate(time.Millisecond).Compare(bv.Truncate(time.Millisecond)), true
	}
	return 0, false
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
