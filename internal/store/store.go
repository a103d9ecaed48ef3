// Package store is the ephemeral entity store: JSON documents in Redis with a
// key-level TTL and set-based equality indexes for secondary search. A save
// never arms the TTL by itself; callers re-arm it with Expire after every
// save that should extend an entity's life.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

type Store struct {
	rdb      redis.UniversalClient
	prefix   string
	validate *validator.Validate
	log      *zap.SugaredLogger
}

func New(rdb redis.UniversalClient, prefix string, log *zap.SugaredLogger) *Store {
	return &Store{
		rdb:      rdb,
		prefix:   prefix,
		validate: validator.New(),
		log:      log,
	}
}

// Repository is the typed access point for one entity kind.
type Repository[T Entity] struct {
	s      *Store
	schema *Schema[T]
}

func NewRepository[T Entity](s *Store, schema *Schema[T]) *Repository[T] {
	return &Repository[T]{s: s, schema: schema}
}

func (r *Repository[T]) Schema() *Schema[T] { return r.schema }

func (r *Repository[T]) key(id string) string {
	return fmt.Sprintf("%s:%s:%s", r.s.prefix, r.schema.kind, id)
}

func (r *Repository[T]) allKey() string {
	return fmt.Sprintf("%s:idx:%s:all", r.s.prefix, r.schema.kind)
}

func (r *Repository[T]) idxKey(field string, value any) string {
	return fmt.Sprintf("%s:idx:%s:%s:%v", r.s.prefix, r.schema.kind, field, normalize(value))
}

// CreateIndex registers the kind and its indexed field list. Idempotent,
// called once per schema at startup.
func (r *Repository[T]) CreateIndex(ctx context.Context) error {
	fields, err := json.Marshal(r.schema.indexed)
	if err != nil {
		return apperrors.Internal(err)
	}
	pipe := r.s.rdb.Pipeline()
	pipe.SAdd(ctx, r.s.prefix+":schemas", r.schema.kind)
	pipe.Set(ctx, fmt.Sprintf("%s:idx:%s:_fields", r.s.prefix, r.schema.kind), fields, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Save validates and persists the entity, maintaining its index sets. The
// write keeps whatever TTL the key already carries; arming or re-arming the
// TTL is the caller's job via Expire.
func (r *Repository[T]) Save(ctx context.Context, e T) error {
	e.Touch(time.Now().UTC().Truncate(time.Millisecond))
	if err := r.s.validate.Struct(e); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalid, "entity validation failed", err)
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return apperrors.Internal(err)
	}

	old, found, err := r.Fetch(ctx, e.EntityID())
	if err != nil {
		return err
	}

	pipe := r.s.rdb.TxPipeline()
	if found {
		for _, field := range r.schema.indexed {
			oldVal, _ := r.schema.Value(old, field)
			newVal, _ := r.schema.Value(e, field)
			if normalize(oldVal) != normalize(newVal) {
				pipe.SRem(ctx, r.idxKey(field, oldVal), e.EntityID())
			}
		}
	}
	for _, field := range r.schema.indexed {
		val, ok := r.schema.Value(e, field)
		if !ok {
			continue
		}
		pipe.SAdd(ctx, r.idxKey(field, val), e.EntityID())
	}
	pipe.SAdd(ctx, r.allKey(), e.EntityID())
	pipe.Set(ctx, r.key(e.EntityID()), raw, redis.KeepTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Fetch loads an entity by id. The second return value reports presence.
func (r *Repository[T]) Fetch(ctx context.Context, id string) (T, bool, error) {
	var zero T
	raw, err := r.s.rdb.Get(ctx, r.key(id)).Bytes()
	if err == redis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, apperrors.Internal(err)
	}
	e, err := r.decode(raw)
	if err != nil {
		return zero, false, err
	}
	return e, true, nil
}

// Remove deletes the entity and all of its index memberships.
func (r *Repository[T]) Remove(ctx context.Context, id string) error {
	e, found, err := r.Fetch(ctx, id)
	pipe := r.s.rdb.TxPipeline()
	if err == nil && found {
		for _, field := range r.schema.indexed {
			if val, ok := r.schema.Value(e, field); ok {
				pipe.SRem(ctx, r.idxKey(field, val), id)
			}
		}
	}
	pipe.SRem(ctx, r.allKey(), id)
	pipe.Del(ctx, r.key(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Expire arms the key-level TTL. Redis deletes the key outright for a
// non-positive value, which matches the "expiration <= 0 means absent"
// contract.
func (r *Repository[T]) Expire(ctx context.Context, id string, seconds int64) error {
	if seconds <= 0 {
		if err := r.s.rdb.Del(ctx, r.key(id)).Err(); err != nil {
			return apperrors.Internal(err)
		}
		return nil
	}
	if err := r.s.rdb.Expire(ctx, r.key(id), time.Duration(seconds)*time.Second).Err(); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// TTL reports the remaining physical lifetime of the stored key.
func (r *Repository[T]) TTL(ctx context.Context, id string) (time.Duration, error) {
	d, err := r.s.rdb.TTL(ctx, r.key(id)).Result()
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return d, nil
}

func (r *Repository[T]) Search() *Search[T] {
	return &Search[T]{repo: r}
}

func (r *Repository[T]) decode(raw []byte) (T, error) {
	e := newValue[T]()
	if err := json.Unmarshal(raw, e); err != nil {
		var zero T
		return zero, apperrors.Internal(err)
	}
	return e, nil
}
