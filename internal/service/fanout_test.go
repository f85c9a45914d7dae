package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/feedengine/internal/event"
)

func TestFanoutDeliversToAllFollowers(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	author := env.user("author")
	followers := []string{"f1", "f2", "f3", "f4", "f5"}
	for _, f := range followers {
		env.user(f)
		env.follow(f, author)
	}

	post := env.publish(author, "hello campus")

	for _, f := range followers {
		page, ok := env.timeline.Get(ctx, f, 0, 10)
		require.True(t, ok, "follower %s timeline should exist", f)
		require.Len(t, page.PostIDs, 1)
		assert.Equal(t, post.ID, page.PostIDs[0])
		assert.Equal(t, float64(post.CreatedAt.UnixMilli()), page.Scores[0])
	}

	// 作者自己的时间线同样要有
	page, ok := env.timeline.Get(ctx, author, 0, 10)
	require.True(t, ok)
	assert.Equal(t, []string{post.ID}, page.PostIDs)
}

func TestFanoutIdempotentOnRedelivery(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	author := env.user("author")
	env.user("fan")
	env.follow("fan", author)

	post := env.publish(author, "once")

	// at-least-once 投递：同一事件重放不产生重复条目
	env.bus.Publish(event.TopicPostCreated, event.PostEvent{
		PostID:     post.ID,
		AuthorID:   author,
		Visibility: post.Visibility,
		CreatedAt:  post.CreatedAt,
	})

	assert.Equal(t, int64(1), env.timeline.Size(ctx, "fan"))
}

func TestFanoutPrivatePostSkipped(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	author := env.user("author")
	env.user("fan")
	env.follow("fan", author)

	_, err := env.postSvc.Publish(ctx, PublishInput{
		AuthorID: author, Content: "secret", Visibility: "private",
	})
	require.NoError(t, err)

	_, ok := env.timeline.Get(ctx, "fan", 0, 10)
	assert.False(t, ok)
	_, ok = env.timeline.Get(ctx, author, 0, 10)
	assert.False(t, ok)
}

func TestFanoutCelebrityGoesToOutbox(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	celeb := env.user("celeb")
	for _, f := range []string{"f1", "f2", "f3"} {
		env.user(f)
		env.follow(f, celeb)
	}

	post := env.publish(celeb, "big announcement")

	// 受众达到阈值：粉丝时间线不写，只落 outbox
	for _, f := range []string{"f1", "f2", "f3"} {
		_, ok := env.timeline.Get(ctx, f, 0, 10)
		assert.False(t, ok, "follower %s timeline must stay untouched", f)
	}
	page, ok := env.outbox.Get(ctx, celeb, 0, 10)
	require.True(t, ok)
	assert.Equal(t, []string{post.ID}, page.PostIDs)

	// 名人标记已写入，读路径据此合并 outbox
	assert.True(t, env.relCache.IsCelebrity(ctx, celeb))

	// 作者本人时间线照常
	own, ok := env.timeline.Get(ctx, celeb, 0, 10)
	require.True(t, ok)
	assert.Equal(t, []string{post.ID}, own.PostIDs)
}

func TestPostDeleteCleansEverywhere(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	author := env.user("author")
	followers := []string{"f1", "f2", "f3"}
	for _, f := range followers {
		env.user(f)
		env.follow(f, author)
	}

	post := env.publish(author, "oops")
	keep := env.publish(author, "still here")

	require.NoError(t, env.postSvc.Delete(ctx, author, post.ID))

	for _, uid := range append(followers, author) {
		page, ok := env.timeline.Get(ctx, uid, 0, 10)
		require.True(t, ok)
		assert.Equal(t, []string{keep.ID}, page.PostIDs, "user %s", uid)
	}
	snaps := env.snapshots.GetPosts(ctx, []string{post.ID})
	assert.Nil(t, snaps[post.ID])
}

func TestDeleteRejectsNonAuthor(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	author := env.user("author")
	env.user("mallory")
	post := env.publish(author, "mine")

	err := env.postSvc.Delete(ctx, "mallory", post.ID)
	assert.ErrorIs(t, err, ErrNotPostAuthor)
}

func TestRelationChangeInvalidatesCaches(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	a := env.user("a")
	b := env.user("b")
	c := env.user("c")
	env.follow(a, b)

	// 读一次把两个方向的关系缓存灌热
	_, err := env.relSvc.SourceIDs(ctx, a)
	require.NoError(t, err)
	_, err = env.relSvc.AudienceIDs(ctx, b)
	require.NoError(t, err)
	_, ok := env.relCache.GetSourceIDs(ctx, a)
	require.True(t, ok)

	require.NoError(t, env.relSvc.Follow(ctx, a, c))

	_, ok = env.relCache.GetSourceIDs(ctx, a)
	assert.False(t, ok, "source cache must be invalidated after follow")

	ids, err := env.relSvc.SourceIDs(ctx, a)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b, c}, ids)
}

func TestFollowSelfRejected(t *testing.T) {
	env := newTestEnv(t, 100)
	env.user("me")
	assert.ErrorIs(t, env.relSvc.Follow(context.Background(), "me", "me"), ErrFollowSelf)
}

func TestLikeUpdatesSnapshotCounter(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	author := env.user("author")
	env.user("fan")
	env.follow("fan", author)
	post := env.publish(author, "like me")

	require.NoError(t, env.likeSvc.Like(ctx, "fan", post.ID))
	// 重复点赞不再加计数
	require.NoError(t, env.likeSvc.Like(ctx, "fan", post.ID))

	snaps := env.snapshots.GetPosts(ctx, []string{post.ID})
	require.NotNil(t, snaps[post.ID])
	assert.Equal(t, int64(1), snaps[post.ID].LikeCount)

	require.NoError(t, env.likeSvc.Unlike(ctx, "fan", post.ID))
	snaps = env.snapshots.GetPosts(ctx, []string{post.ID})
	assert.Equal(t, int64(0), snaps[post.ID].LikeCount)
}
