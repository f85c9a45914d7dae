package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campushq/feedengine/internal/model"
)

func sampleSnapshot(id string) *PostSnapshot {
	post := &model.Post{
		ID:           id,
		AuthorID:     "author-1",
		Content:      "hello campus",
		Visibility:   model.VisibilityPublic,
		LikeCount:    3,
		CommentCount: 2,
		CreatedAt:    time.UnixMilli(1700000000000),
	}
	author := &model.User{ID: "author-1", Username: "alice", AvatarURL: "https://cdn/a.png"}
	return SnapshotFromPost(post, author)
}

func TestSnapshotRoundTrip(t *testing.T) {
	_, rdb := testRedis(t)
	sc := NewSnapshotCache(rdb, testTTL)
	ctx := context.Background()

	sc.CachePost(ctx, sampleSnapshot("p1"))

	got := sc.GetPosts(ctx, []string{"p1", "p2"})
	require.Len(t, got, 2)
	require.Nil(t, got["p2"], "missing id maps to nil")

	snap := got["p1"]
	require.NotNil(t, snap)
	require.Equal(t, "alice", snap.AuthorName)
	require.Equal(t, "hello campus", snap.Content)
	require.EqualValues(t, 3, snap.LikeCount)
	require.EqualValues(t, 1700000000000, snap.CreatedAtMs)
	require.EqualValues(t, 3+2*2, snap.Engagement())
}

func TestSnapshotInvalidate(t *testing.T) {
	_, rdb := testRedis(t)
	sc := NewSnapshotCache(rdb, testTTL)
	ctx := context.Background()

	sc.CachePost(ctx, sampleSnapshot("p1"))
	sc.Invalidate(ctx, "p1")

	got := sc.GetPosts(ctx, []string{"p1"})
	require.Nil(t, got["p1"])
}

func TestSnapshotCountsUpdateFieldLevel(t *testing.T) {
	_, rdb := testRedis(t)
	sc := NewSnapshotCache(rdb, testTTL)
	ctx := context.Background()

	sc.CachePost(ctx, sampleSnapshot("p1"))
	sc.SetLikeCount(ctx, "p1", 42)
	sc.SetCommentCount(ctx, "p1", 7)

	snap := sc.GetPosts(ctx, []string{"p1"})["p1"]
	require.NotNil(t, snap)
	require.EqualValues(t, 42, snap.LikeCount)
	require.EqualValues(t, 7, snap.CommentCount)
	require.Equal(t, "hello campus", snap.Content, "other fields untouched")

	// count updates never resurrect a missing snapshot
	sc.SetLikeCount(ctx, "ghost", 5)
	require.Nil(t, sc.GetPosts(ctx, []string{"ghost"})["ghost"])
}
