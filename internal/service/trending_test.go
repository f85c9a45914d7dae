package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/feedengine/internal/model"
)

func TestTrendingScoreShape(t *testing.T) {
	now := time.Now()
	mk := func(age time.Duration, likes, comments int64) *model.Post {
		return &model.Post{CreatedAt: now.Add(-age), LikeCount: likes, CommentCount: comments}
	}

	// 互动量相同，越老分越低
	assert.Greater(t, TrendingScore(mk(time.Hour, 10, 0), now), TrendingScore(mk(5*time.Hour, 10, 0), now))
	// 年龄相同，互动越多分越高；评论权重是点赞的两倍
	assert.Greater(t, TrendingScore(mk(time.Hour, 20, 0), now), TrendingScore(mk(time.Hour, 10, 0), now))
	assert.Greater(t, TrendingScore(mk(time.Hour, 0, 6), now), TrendingScore(mk(time.Hour, 10, 0), now))
	// 零互动永远是零分
	assert.Zero(t, TrendingScore(mk(time.Minute, 0, 0), now))
	// 时钟偏差导致的"未来"帖不会除出大于互动量的分
	assert.InDelta(t, 10, TrendingScore(mk(-time.Minute, 10, 0), now), 0.001)
}

func TestRecomputeOncePopulatesTrendingSets(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	author := env.user("author")
	// hot: 新且互动高；warm: 互动高但老；cold: 零互动，不该有分
	hot := env.post("hot", author, time.Hour, 100, 20)
	warm := env.post("warm", author, 40*time.Hour, 100, 20)
	env.post("cold", author, time.Hour, 0, 0)
	// 窗口之外的帖子不参与
	env.post("stale", author, 80*time.Hour, 500, 100)
	// 非 public 不参与
	p := &model.Post{
		ID: "hidden", AuthorID: author, Content: "x",
		Visibility: model.VisibilityConnections, LikeCount: 50,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, env.db.Create(p).Error)

	engine := NewTrendingEngine(env.postRepo, env.trendCache, TrendingConfig{
		Window: 48 * time.Hour, MaxRows: 100, TopK: 10, GuestK: 1,
	})
	require.NoError(t, engine.RecomputeOnce(ctx))

	page := env.trendCache.GetTrending(ctx, 0, 10)
	require.NotEmpty(t, page.PostIDs)
	assert.Equal(t, hot.ID, page.PostIDs[0])
	assert.Contains(t, page.PostIDs, warm.ID)
	assert.NotContains(t, page.PostIDs, "stale")
	assert.NotContains(t, page.PostIDs, "hidden")

	guest := env.trendCache.GetGuestFeed(ctx, 0, 10)
	require.Len(t, guest.PostIDs, 1)
	assert.Equal(t, hot.ID, guest.PostIDs[0])
}

func TestRecomputeReplacesWholesale(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	author := env.user("author")
	first := env.post("first", author, time.Hour, 10, 0)

	engine := NewTrendingEngine(env.postRepo, env.trendCache, TrendingConfig{
		Window: 48 * time.Hour, MaxRows: 100, TopK: 10, GuestK: 5,
	})
	require.NoError(t, engine.RecomputeOnce(ctx))
	require.Contains(t, env.trendCache.GetTrending(ctx, 0, 10).PostIDs, first.ID)

	// 下一轮时帖子已删除：旧条目必须整体消失，而不是残留
	require.NoError(t, env.postRepo.SoftDelete(ctx, first.ID))
	require.NoError(t, engine.RecomputeOnce(ctx))

	assert.Empty(t, env.trendCache.GetTrending(ctx, 0, 10).PostIDs)
	assert.Empty(t, env.trendCache.GetGuestFeed(ctx, 0, 10).PostIDs)
}

func TestRecomputeTopKBound(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	author := env.user("author")
	for i := 0; i < 15; i++ {
		env.post(fmt.Sprintf("t%02d", i), author, time.Hour, int64(i+1), 0)
	}

	engine := NewTrendingEngine(env.postRepo, env.trendCache, TrendingConfig{
		Window: 48 * time.Hour, MaxRows: 100, TopK: 5, GuestK: 2,
	})
	require.NoError(t, engine.RecomputeOnce(ctx))

	page := env.trendCache.GetTrending(ctx, 0, 100)
	assert.Len(t, page.PostIDs, 5)
	// 留下的就是互动最高的那几条
	assert.Equal(t, "t14", page.PostIDs[0])
}
