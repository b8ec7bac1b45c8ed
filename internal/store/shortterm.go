package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	shortTermKeyPrefix = "castellan:stm:"
	shortTermIndexKey  = "castellan:stm:index"
	defaultEntryTTL    = 24 * time.Hour
)

// ShortTermBuffer is the redis-backed, TTL-bounded buffer for raw
// interactions. Redis owns expiry; this store only appends, lists entries
// past a dwell age, and deletes entries after successful consolidation.
type ShortTermBuffer struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewShortTermBuffer(rdb *redis.Client) *ShortTermBuffer {
	return &ShortTermBuffer{rdb: rdb, ttl: defaultEntryTTL}
}

func (b *ShortTermBuffer) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		b.ttl = ttl
	}
}

func (b *ShortTermBuffer) key(id string) string {
	return shortTermKeyPrefix + id
}

func (b *ShortTermBuffer) Append(ctx context.Context, e *domain.ShortTermEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal short-term entry: %w", err)
	}

	pipe := b.rdb.TxPipeline()
	pipe.Set(ctx, b.key(e.ID), data, b.ttl)
	pipe.ZAdd(ctx, shortTermIndexKey, redis.Z{
		Score:  float64(e.RecordedAt.UnixMilli()),
		Member: e.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: append short-term entry: %v", domain.ErrCollaboratorUnavailable, err)
	}
	return nil
}

// ListOlderThan returns entries recorded at least age ago, oldest first.
// Entries whose value has expired under redis TTL are dropped from the
// index as they are encountered.
func (b *ShortTermBuffer) ListOlderThan(ctx context.Context, age time.Duration) ([]domain.ShortTermEntry, error) {
	cutoff := time.Now().Add(-age).UnixMilli()

	ids, err := b.rdb.ZRangeByScore(ctx, shortTermIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list short-term entries: %v", domain.ErrCollaboratorUnavailable, err)
	}

	var entries []domain.ShortTermEntry
	for _, id := range ids {
		data, err := b.rdb.Get(ctx, b.key(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Value expired; drop the dangling index member.
				_ = b.rdb.ZRem(ctx, shortTermIndexKey, id).Err()
				continue
			}
			return nil, fmt.Errorf("%w: read short-term entry: %v", domain.ErrCollaboratorUnavailable, err)
		}

		var e domain.ShortTermEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal short-term entry %s: %w", id, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Delete removes an entry after it has been consolidated. Deleting an
// already-gone entry is not an error: re-running consolidation must be
// able to skip entries a previous run migrated.
func (b *ShortTermBuffer) Delete(ctx context.Context, id string) error {
	pipe := b.rdb.TxPipeline()
	pipe.Del(ctx, b.key(id))
	pipe.ZRem(ctx, shortTermIndexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: delete short-term entry: %v", domain.ErrCollaboratorUnavailable, err)
	}
	return nil
}

func (b *ShortTermBuffer) Len(ctx context.Context) (int, error) {
	n, err := b.rdb.ZCard(ctx, shortTermIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: count short-term entries: %v", domain.ErrCollaboratorUnavailable, err)
	}
	return int(n), nil
}
