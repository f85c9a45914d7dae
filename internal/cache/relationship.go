package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campushq/feedengine/internal/metrics"
	"github.com/campushq/feedengine/pkg/logger"
)

// 方向：source = 我看谁（关注 + 人脉），audience = 谁看我（粉丝 + 人脉）
const (
	relKindSource   = "src"
	relKindAudience = "aud"
)

// RelationshipCache 关注/人脉 id 集合的短 TTL 缓存 + 全局名人标记集合。
// 真源是关系服务；follow/connection 事件触发显式失效，miss 时懒重建。
type RelationshipCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRelationshipCache(rdb *redis.Client, ttl time.Duration) *RelationshipCache {
	return &RelationshipCache{rdb: rdb, ttl: ttl}
}

// GetSourceIDs viewer 的内容来源 id 集合；(nil, false) 表示 miss。
// 空集合是合法缓存值，与 miss 区分。
func (c *RelationshipCache) GetSourceIDs(ctx context.Context, userID string) ([]string, bool) {
	return c.get(ctx, relKindSource, userID)
}

func (c *RelationshipCache) CacheSourceIDs(ctx context.Context, userID string, ids []string) {
	c.cache(ctx, relKindSource, userID, ids)
}

// GetAudienceIDs 作者的受众 id 集合（扇出路径用）
func (c *RelationshipCache) GetAudienceIDs(ctx context.Context, userID string) ([]string, bool) {
	return c.get(ctx, relKindAudience, userID)
}

func (c *RelationshipCache) CacheAudienceIDs(ctx context.Context, userID string, ids []string) {
	c.cache(ctx, relKindAudience, userID, ids)
}

// Invalidate 关系事件触碰到谁就把谁的两个方向都失效
func (c *RelationshipCache) Invalidate(ctx context.Context, userID string) {
	keys := []string{
		relationKey(relKindSource + ":" + userID),
		relationKey(relKindAudience + ":" + userID),
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.swallow("invalidate", err)
	}
}

func (c *RelationshipCache) get(ctx context.Context, kind, userID string) ([]string, bool) {
	data, err := c.rdb.Get(ctx, relationKey(kind+":"+userID)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("relationship").Inc()
		return nil, false
	}
	if err != nil {
		c.swallow("read", err)
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		c.swallow("decode", err)
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("relationship").Inc()
	return ids, true
}

func (c *RelationshipCache) cache(ctx context.Context, kind, userID string, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, relationKey(kind+":"+userID), payload, c.ttl).Err(); err != nil {
		c.swallow("cache", err)
	}
}

// MarkCelebrity 把作者加入全局名人标记集合
func (c *RelationshipCache) MarkCelebrity(ctx context.Context, userID string) {
	if err := c.rdb.SAdd(ctx, celebritySetKey, userID).Err(); err != nil {
		c.swallow("mark_celebrity", err)
	}
}

func (c *RelationshipCache) UnmarkCelebrity(ctx context.Context, userID string) {
	if err := c.rdb.SRem(ctx, celebritySetKey, userID).Err(); err != nil {
		c.swallow("unmark_celebrity", err)
	}
}

func (c *RelationshipCache) IsCelebrity(ctx context.Context, userID string) bool {
	ok, err := c.rdb.SIsMember(ctx, celebritySetKey, userID).Result()
	if err != nil {
		c.swallow("is_celebrity", err)
		return false
	}
	return ok
}

// FilterCelebrities 批量成员测试，返回 userIDs 中属于名人的子集（保持输入顺序）
func (c *RelationshipCache) FilterCelebrities(ctx context.Context, userIDs []string) []string {
	if len(userIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		members[i] = id
	}
	flags, err := c.rdb.SMIsMember(ctx, celebritySetKey, members...).Result()
	if err != nil {
		c.swallow("filter_celebrities", err)
		return nil
	}
	out := make([]string, 0, 4)
	for i, isMember := range flags {
		if isMember {
			out = append(out, userIDs[i])
		}
	}
	return out
}

func (c *RelationshipCache) swallow(op string, err error) {
	metrics.CacheErrors.WithLabelValues("relationship").Inc()
	logger.Warn("relationship cache unavailable", zap.String("op", op), zap.Error(err))
}
