package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRelationshipCacheMissVsEmpty(t *testing.T) {
	_, rdb := testRedis(t)
	rc := NewRelationshipCache(rdb, testTTL)
	ctx := context.Background()

	_, ok := rc.GetSourceIDs(ctx, "u1")
	require.False(t, ok, "cold key is a miss")

	// an empty id set is a legitimate cached value, distinct from a miss
	rc.CacheSourceIDs(ctx, "u1", nil)
	ids, ok := rc.GetSourceIDs(ctx, "u1")
	require.True(t, ok)
	require.Empty(t, ids)

	rc.CacheSourceIDs(ctx, "u2", []string{"a", "b"})
	ids, ok = rc.GetSourceIDs(ctx, "u2")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, ids)
}

func TestRelationshipInvalidateClearsBothDirections(t *testing.T) {
	_, rdb := testRedis(t)
	rc := NewRelationshipCache(rdb, testTTL)
	ctx := context.Background()

	rc.CacheSourceIDs(ctx, "u1", []string{"a"})
	rc.CacheAudienceIDs(ctx, "u1", []string{"b"})
	rc.Invalidate(ctx, "u1")

	_, ok := rc.GetSourceIDs(ctx, "u1")
	require.False(t, ok)
	_, ok = rc.GetAudienceIDs(ctx, "u1")
	require.False(t, ok)
}

func TestCelebrityMarkerSet(t *testing.T) {
	_, rdb := testRedis(t)
	rc := NewRelationshipCache(rdb, testTTL)
	ctx := context.Background()

	rc.MarkCelebrity(ctx, "star")
	require.True(t, rc.IsCelebrity(ctx, "star"))
	require.False(t, rc.IsCelebrity(ctx, "nobody"))

	got := rc.FilterCelebrities(ctx, []string{"nobody", "star", "other"})
	require.Equal(t, []string{"star"}, got)

	rc.UnmarkCelebrity(ctx, "star")
	require.False(t, rc.IsCelebrity(ctx, "star"))
	require.Empty(t, rc.FilterCelebrities(ctx, []string{"star"}))
}

func TestCelebrityFilterSurvivesOutage(t *testing.T) {
	mr, rdb := testRedis(t)
	rc := NewRelationshipCache(rdb, testTTL)
	ctx := context.Background()

	rc.MarkCelebrity(ctx, "star")
	mr.Close()

	require.Empty(t, rc.FilterCelebrities(ctx, []string{"star"}))
	require.False(t, rc.IsCelebrity(ctx, "star"))
}
