package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campushq/feedengine/internal/metrics"
	"github.com/campushq/feedengine/pkg/logger"
)

// TrendingEntry 趋势集合里的一条 (postID, 衰减后互动分)
type TrendingEntry struct {
	PostID string
	Score  float64
}

// TrendingCache 全局趋势集合 + 游客 feed 子集（redis ZSET）。
// 每轮重算整体替换，绝不增量合并；短 TTL 让挂掉的重算循环靠过期自愈。
type TrendingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTrendingCache(rdb *redis.Client, ttl time.Duration) *TrendingCache {
	return &TrendingCache{rdb: rdb, ttl: ttl}
}

// Replace 原子替换两个集合：先写临时 key，再 RENAME 覆盖。
// entries 已按分值降序；guestK 条进入游客子集。
func (c *TrendingCache) Replace(ctx context.Context, entries []TrendingEntry, guestK int) error {
	if len(entries) == 0 {
		// 本轮无候选：清空而不是留旧数据
		if err := c.rdb.Del(ctx, trendingKey, guestFeedKey).Err(); err != nil {
			c.swallow("clear", err)
			return err
		}
		return nil
	}
	if guestK > len(entries) {
		guestK = len(entries)
	}
	tmpTrending := trendingKey + ":next"
	tmpGuest := guestFeedKey + ":next"

	zs := make([]redis.Z, len(entries))
	for i, e := range entries {
		zs[i] = redis.Z{Score: e.Score, Member: e.PostID}
	}

	pipe := c.rdb.Pipeline()
	pipe.Del(ctx, tmpTrending, tmpGuest)
	pipe.ZAdd(ctx, tmpTrending, zs...)
	pipe.ZAdd(ctx, tmpGuest, zs[:guestK]...)
	pipe.Rename(ctx, tmpTrending, trendingKey)
	pipe.Rename(ctx, tmpGuest, guestFeedKey)
	pipe.Expire(ctx, trendingKey, c.ttl)
	pipe.Expire(ctx, guestFeedKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.swallow("replace", err)
		return err
	}
	metrics.TrendingRecomputes.Inc()
	return nil
}

// GetTrending 后端不可用时返回空页：feed 退化为 following-only，不上抛错误
func (c *TrendingCache) GetTrending(ctx context.Context, cursor float64, limit int) Page {
	return c.page(ctx, trendingKey, cursor, limit)
}

// GetGuestFeed 游客流；不可用时为空，等下一轮重算
func (c *TrendingCache) GetGuestFeed(ctx context.Context, cursor float64, limit int) Page {
	return c.page(ctx, guestFeedKey, cursor, limit)
}

func (c *TrendingCache) page(ctx context.Context, key string, cursor float64, limit int) Page {
	page, err := zRevPage(ctx, c.rdb, key, cursor, limit)
	if err != nil {
		c.swallow("read", err)
		return Page{}
	}
	if len(page.PostIDs) > 0 {
		metrics.CacheHits.WithLabelValues("trending").Inc()
	} else {
		metrics.CacheMisses.WithLabelValues("trending").Inc()
	}
	return page
}

func (c *TrendingCache) swallow(op string, err error) {
	metrics.CacheErrors.WithLabelValues("trending").Inc()
	logger.Warn("trending cache unavailable", zap.String("op", op), zap.Error(err))
}
