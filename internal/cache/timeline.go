package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campushq/feedengine/internal/metrics"
	"github.com/campushq/feedengine/pkg/logger"
)

// TimelineCache 每用户一个按分值排序的帖子 id 集合（redis ZSET）。
// 同一实现也用于名人 outbox，只是 key 前缀和容量不同。
type TimelineCache struct {
	rdb       *redis.Client
	keyPrefix string
	component string
	cap       int
	ttl       time.Duration
}

func NewTimelineCache(rdb *redis.Client, cap int, ttl time.Duration) *TimelineCache {
	return &TimelineCache{rdb: rdb, keyPrefix: timelineKeyPrefix, component: "timeline", cap: cap, ttl: ttl}
}

// NewOutboxCache 名人作者的发件盒：容量更小，读时合并
func NewOutboxCache(rdb *redis.Client, cap int, ttl time.Duration) *TimelineCache {
	return &TimelineCache{rdb: rdb, keyPrefix: outboxKeyPrefix, component: "outbox", cap: cap, ttl: ttl}
}

// Get 返回 cursor 之前（分值严格更小）的至多 limit 条，降序。
// ok=false 表示 miss（key 不存在或后端不可用），属正常路径。
func (c *TimelineCache) Get(ctx context.Context, userID string, cursor float64, limit int) (Page, bool) {
	key := c.keyPrefix + userID
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.miss("read", err)
		return Page{}, false
	}
	if exists == 0 {
		metrics.CacheMisses.WithLabelValues(c.component).Inc()
		return Page{}, false
	}
	page, err := zRevPage(ctx, c.rdb, key, cursor, limit)
	if err != nil {
		c.miss("read", err)
		return Page{}, false
	}
	metrics.CacheHits.WithLabelValues(c.component).Inc()
	return page, true
}

// Add 插入/更新一条并收缩到容量上限，然后续期
func (c *TimelineCache) Add(ctx context.Context, userID, postID string, score float64) {
	c.AddBatch(ctx, []string{userID}, postID, score)
}

// AddBatch 一次 pipeline 往返写完整个粉丝集合；空集合为 no-op。
// 收缩策略：按 rank 删除分值最低的超额成员。
func (c *TimelineCache) AddBatch(ctx context.Context, userIDs []string, postID string, score float64) {
	if len(userIDs) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, uid := range userIDs {
		key := c.keyPrefix + uid
		pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: postID})
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-(c.cap + 1)))
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.noop("add", err)
		return
	}
	metrics.FanoutWrites.Add(float64(len(userIDs)))
}

// Populate 回源重建后把拿到的一页写回（单用户多条），同样收缩+续期
func (c *TimelineCache) Populate(ctx context.Context, userID string, page Page) {
	if len(page.PostIDs) == 0 {
		return
	}
	key := c.keyPrefix + userID
	zs := make([]redis.Z, len(page.PostIDs))
	for i, id := range page.PostIDs {
		zs[i] = redis.Z{Score: page.Scores[i], Member: id}
	}
	pipe := c.rdb.Pipeline()
	pipe.ZAdd(ctx, key, zs...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-(c.cap + 1)))
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.noop("populate", err)
	}
}

func (c *TimelineCache) Remove(ctx context.Context, userID, postID string) {
	c.RemoveBatch(ctx, []string{userID}, postID)
}

func (c *TimelineCache) RemoveBatch(ctx context.Context, userIDs []string, postID string) {
	if len(userIDs) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, uid := range userIDs {
		pipe.ZRem(ctx, c.keyPrefix+uid, postID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.noop("remove", err)
	}
}

// Size 当前集合大小（测试与运维用）
func (c *TimelineCache) Size(ctx context.Context, userID string) int64 {
	n, err := c.rdb.ZCard(ctx, c.keyPrefix+userID).Result()
	if err != nil {
		c.noop("size", err)
		return 0
	}
	return n
}

func (c *TimelineCache) miss(op string, err error) {
	metrics.CacheErrors.WithLabelValues(c.component).Inc()
	metrics.CacheMisses.WithLabelValues(c.component).Inc()
	logger.Warn("timeline cache unavailable, treating as miss",
		zap.String("component", c.component), zap.String("op", op), zap.Error(err))
}

func (c *TimelineCache) noop(op string, err error) {
	metrics.CacheErrors.WithLabelValues(c.component).Inc()
	logger.Warn("timeline cache write dropped",
		zap.String("component", c.component), zap.String("op", op), zap.Error(err))
}
