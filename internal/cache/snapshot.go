package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campushq/feedengine/internal/metrics"
	"github.com/campushq/feedengine/internal/model"
	"github.com/campushq/feedengine/pkg/logger"
)

// PostSnapshot 帖子的扁平化缓存投影（含作者展示字段）
type PostSnapshot struct {
	ID            string
	AuthorID      string
	AuthorName    string
	AuthorAvatar  string
	Content       string
	MediaURLs     string
	Visibility    string
	CollegeID     string
	LikeCount     int64
	CommentCount  int64
	CreatedAtMs   int64
}

func (s *PostSnapshot) Engagement() int64 { return s.LikeCount + 2*s.CommentCount }

// SnapshotFromPost 从库行 + 作者展示字段构造快照
func SnapshotFromPost(p *model.Post, author *model.User) *PostSnapshot {
	snap := &PostSnapshot{
		ID:           p.ID,
		AuthorID:     p.AuthorID,
		Content:      p.Content,
		MediaURLs:    p.MediaURLs,
		Visibility:   p.Visibility,
		CollegeID:    p.CollegeID,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		CreatedAtMs:  p.CreatedAt.UnixMilli(),
	}
	if author != nil {
		snap.AuthorName = author.Username
		snap.AuthorAvatar = author.AvatarURL
	}
	return snap
}

func (s *PostSnapshot) toMap() map[string]interface{} {
	return map[string]interface{}{
		"id":            s.ID,
		"author_id":     s.AuthorID,
		"author_name":   s.AuthorName,
		"author_avatar": s.AuthorAvatar,
		"content":       s.Content,
		"media_urls":    s.MediaURLs,
		"visibility":    s.Visibility,
		"college_id":    s.CollegeID,
		"like_count":    s.LikeCount,
		"comment_count": s.CommentCount,
		"created_at_ms": s.CreatedAtMs,
	}
}

func snapshotFromMap(m map[string]string) *PostSnapshot {
	likeCount, _ := strconv.ParseInt(m["like_count"], 10, 64)
	commentCount, _ := strconv.ParseInt(m["comment_count"], 10, 64)
	createdAt, _ := strconv.ParseInt(m["created_at_ms"], 10, 64)
	return &PostSnapshot{
		ID:           m["id"],
		AuthorID:     m["author_id"],
		AuthorName:   m["author_name"],
		AuthorAvatar: m["author_avatar"],
		Content:      m["content"],
		MediaURLs:    m["media_urls"],
		Visibility:   m["visibility"],
		CollegeID:    m["college_id"],
		LikeCount:    likeCount,
		CommentCount: commentCount,
		CreatedAtMs:  createdAt,
	}
}

// SnapshotCache 帖子快照的字段级缓存（redis HASH），互动计数可单字段更新
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func (c *SnapshotCache) CachePost(ctx context.Context, snap *PostSnapshot) {
	if snap == nil || snap.ID == "" {
		return
	}
	key := snapshotKey(snap.ID)
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, key, snap.toMap())
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.swallow("cache", err)
	}
}

// GetPosts 返回每个 id 对应的快照，miss 的 id 映射为 nil；
// caller 负责回库并 CachePost 回填。一次 pipeline 往返。
func (c *SnapshotCache) GetPosts(ctx context.Context, postIDs []string) map[string]*PostSnapshot {
	out := make(map[string]*PostSnapshot, len(postIDs))
	for _, id := range postIDs {
		out[id] = nil
	}
	if len(postIDs) == 0 {
		return out
	}
	pipe := c.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(postIDs))
	for _, id := range postIDs {
		cmds[id] = pipe.HGetAll(ctx, snapshotKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.swallow("read", err)
		return out
	}
	for id, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			metrics.CacheMisses.WithLabelValues("snapshot").Inc()
			continue
		}
		out[id] = snapshotFromMap(fields)
		metrics.CacheHits.WithLabelValues("snapshot").Inc()
	}
	return out
}

// Invalidate 直接删除快照：编辑/删除后不允许读到旧内容
func (c *SnapshotCache) Invalidate(ctx context.Context, postID string) {
	if err := c.rdb.Del(ctx, snapshotKey(postID)).Err(); err != nil {
		c.swallow("invalidate", err)
	}
}

// SetLikeCount 单字段更新；快照不存在时不写，避免伪造半个快照
func (c *SnapshotCache) SetLikeCount(ctx context.Context, postID string, count int64) {
	c.setField(ctx, postID, "like_count", count)
}

func (c *SnapshotCache) SetCommentCount(ctx context.Context, postID string, count int64) {
	c.setField(ctx, postID, "comment_count", count)
}

func (c *SnapshotCache) setField(ctx context.Context, postID, field string, value int64) {
	key := snapshotKey(postID)
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.swallow("set_field", err)
		return
	}
	if exists == 0 {
		return
	}
	if err := c.rdb.HSet(ctx, key, field, value).Err(); err != nil {
		c.swallow("set_field", err)
	}
}

func (c *SnapshotCache) swallow(op string, err error) {
	metrics.CacheErrors.WithLabelValues("snapshot").Inc()
	logger.Warn("snapshot cache unavailable", zap.String("op", op), zap.Error(err))
}
