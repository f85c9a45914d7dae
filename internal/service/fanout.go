package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/campushq/feedengine/internal/cache"
	"github.com/campushq/feedengine/internal/event"
	"github.com/campushq/feedengine/internal/model"
	"github.com/campushq/feedengine/pkg/logger"
)

// FanoutDispatcher 订阅帖子/关系生命周期事件，决定推模式还是拉模式：
// 普通作者 fan-out-on-write（受众有界 ⇒ 写成本有界），名人作者只写自己的
// outbox，由读路径合并（fan-out-on-read）。handler 都是幂等的（at-least-once）。
type FanoutDispatcher struct {
	timeline  *cache.TimelineCache
	outbox    *cache.TimelineCache
	snapshots *cache.SnapshotCache
	relCache  *cache.RelationshipCache
	relSvc    RelationshipService
	threshold int
}

func NewFanoutDispatcher(
	timeline, outbox *cache.TimelineCache,
	snapshots *cache.SnapshotCache,
	relCache *cache.RelationshipCache,
	relSvc RelationshipService,
	threshold int,
) *FanoutDispatcher {
	return &FanoutDispatcher{
		timeline:  timeline,
		outbox:    outbox,
		snapshots: snapshots,
		relCache:  relCache,
		relSvc:    relSvc,
		threshold: threshold,
	}
}

// Register 挂接全部订阅
func (d *FanoutDispatcher) Register(bus event.Bus) {
	bus.Subscribe(event.TopicPostCreated, d.onPostCreated)
	bus.Subscribe(event.TopicPostDeleted, d.onPostDeleted)
	bus.Subscribe(event.TopicFollowCreated, d.onRelationChanged)
	bus.Subscribe(event.TopicFollowRemoved, d.onRelationChanged)
	bus.Subscribe(event.TopicConnectionAccepted, d.onRelationChanged)
	bus.Subscribe(event.TopicConnectionRemoved, d.onRelationChanged)
	bus.Subscribe(event.TopicPostLikeChanged, d.onLikeCountChanged)
	bus.Subscribe(event.TopicPostCommentChanged, d.onCommentCountChanged)
}

func (d *FanoutDispatcher) onPostCreated(ctx context.Context, e event.Event) error {
	p, ok := e.Payload.(event.PostEvent)
	if !ok {
		return nil
	}
	if p.Visibility == model.VisibilityPrivate {
		return nil
	}
	score := float64(p.CreatedAt.UnixMilli())

	// 作者自己的时间线总是要有，位置与受众一致
	d.timeline.Add(ctx, p.AuthorID, p.PostID, score)

	audience, err := d.relSvc.AudienceIDs(ctx, p.AuthorID)
	if err != nil {
		logger.Warn("fanout: audience resolve failed, post delivered on read path only",
			zap.String("post", p.PostID), zap.Error(err))
		return err
	}
	if len(audience) >= d.threshold {
		// 名人路径：一条 outbox 记录，写成本与粉丝数无关
		d.relCache.MarkCelebrity(ctx, p.AuthorID)
		d.outbox.Add(ctx, p.AuthorID, p.PostID, score)
		return nil
	}
	d.timeline.AddBatch(ctx, audience, p.PostID, score)
	return nil
}

func (d *FanoutDispatcher) onPostDeleted(ctx context.Context, e event.Event) error {
	p, ok := e.Payload.(event.PostEvent)
	if !ok {
		return nil
	}
	d.timeline.Remove(ctx, p.AuthorID, p.PostID)
	d.outbox.Remove(ctx, p.AuthorID, p.PostID)
	d.snapshots.Invalidate(ctx, p.PostID)

	audience, err := d.relSvc.AudienceIDs(ctx, p.AuthorID)
	if err != nil {
		// 清理不彻底可以接受：补水阶段会丢弃已删除的帖子
		logger.Warn("fanout: audience resolve failed on delete", zap.String("post", p.PostID), zap.Error(err))
		return err
	}
	d.timeline.RemoveBatch(ctx, audience, p.PostID)
	return nil
}

// onRelationChanged 只失效双方缓存，懒重建；不回填/回收已扇出的帖子
// （接受的陈旧性，由 feed 自然老化兜底）
func (d *FanoutDispatcher) onRelationChanged(ctx context.Context, e event.Event) error {
	r, ok := e.Payload.(event.RelationEvent)
	if !ok {
		return nil
	}
	d.relCache.Invalidate(ctx, r.FromUserID)
	d.relCache.Invalidate(ctx, r.ToUserID)
	return nil
}

func (d *FanoutDispatcher) onLikeCountChanged(ctx context.Context, e event.Event) error {
	c, ok := e.Payload.(event.CountEvent)
	if !ok {
		return nil
	}
	d.snapshots.SetLikeCount(ctx, c.PostID, c.Count)
	return nil
}

func (d *FanoutDispatcher) onCommentCountChanged(ctx context.Context, e event.Event) error {
	c, ok := e.Payload.(event.CountEvent)
	if !ok {
		return nil
	}
	d.snapshots.SetCommentCount(ctx, c.PostID, c.Count)
	return nil
}
