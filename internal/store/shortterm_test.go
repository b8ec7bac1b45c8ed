package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/castellan-ai/castellan/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuffer(t *testing.T) (*ShortTermBuffer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewShortTermBuffer(rdb), mr
}

func testEntry(recordedAt time.Time) *domain.ShortTermEntry {
	payload, _ := json.Marshal(map[string]any{"summary": "shortlisted Maya Chen"})
	return &domain.ShortTermEntry{
		DecisionType: string(domain.DecisionTalentSelection),
		Payload:      payload,
		RecordedAt:   recordedAt,
	}
}

func TestShortTermBuffer_AppendAndList(t *testing.T) {
	buf, _ := newTestBuffer(t)
	ctx := context.Background()

	old := testEntry(time.Now().Add(-time.Hour))
	fresh := testEntry(time.Now())

	require.NoError(t, buf.Append(ctx, old))
	require.NoError(t, buf.Append(ctx, fresh))
	require.NotEmpty(t, old.ID)

	entries, err := buf.ListOlderThan(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only entries past the dwell age are returned")
	assert.Equal(t, old.ID, entries[0].ID)

	n, err := buf.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestShortTermBuffer_DeleteIsIdempotent(t *testing.T) {
	buf, _ := newTestBuffer(t)
	ctx := context.Background()

	e := testEntry(time.Now().Add(-time.Hour))
	require.NoError(t, buf.Append(ctx, e))

	require.NoError(t, buf.Delete(ctx, e.ID))
	require.NoError(t, buf.Delete(ctx, e.ID), "deleting an already-migrated entry must not fail")

	entries, err := buf.ListOlderThan(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestShortTermBuffer_ExpiredValuesDroppedFromIndex(t *testing.T) {
	buf, mr := newTestBuffer(t)
	ctx := context.Background()

	e := testEntry(time.Now().Add(-2 * time.Hour))
	require.NoError(t, buf.Append(ctx, e))

	// Simulate redis TTL expiry of the value while the index member lingers.
	mr.FastForward(25 * time.Hour)

	entries, err := buf.ListOlderThan(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	n, err := buf.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "dangling index members are cleaned up on list")
}
