package service

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/campushq/feedengine/internal/cache"
	"github.com/campushq/feedengine/internal/event"
	"github.com/campushq/feedengine/internal/model"
	"github.com/campushq/feedengine/internal/repository"
)

var (
	ErrFollowSelf  = errors.New("cannot follow self")
	ErrConnectSelf = errors.New("cannot connect to self")
)

// RelationshipService 关系链服务：写路径发事件，读路径走短 TTL 缓存
type RelationshipService interface {
	Follow(ctx context.Context, fromUserID, toUserID string) error
	Unfollow(ctx context.Context, fromUserID, toUserID string) error
	Connect(ctx context.Context, a, b string) error
	Disconnect(ctx context.Context, a, b string) error

	// SourceIDs viewer 看到内容的作者集合：关注 ∪ 人脉（缓存，miss 懒重建）
	SourceIDs(ctx context.Context, userID string) ([]string, error)
	// AudienceIDs 作者的受众集合：粉丝 ∪ 人脉（扇出路径用，同样缓存）
	AudienceIDs(ctx context.Context, authorID string) ([]string, error)

	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	FollowerIDs(ctx context.Context, userID string) ([]string, error)
	ConnectionUserIDs(ctx context.Context, userID string) ([]string, error)
	AreConnected(ctx context.Context, a, b string) (bool, error)
	Suggestions(ctx context.Context, userID string, limit int) ([]*model.User, error)
}

type relationshipService struct {
	followRepo     repository.FollowRepository
	connRepo       repository.ConnectionRepository
	suggestionRepo repository.SuggestionRepository
	relCache       *cache.RelationshipCache
	bus            event.Bus
	celebThreshold int
}

func NewRelationshipService(
	followRepo repository.FollowRepository,
	connRepo repository.ConnectionRepository,
	suggestionRepo repository.SuggestionRepository,
	relCache *cache.RelationshipCache,
	bus event.Bus,
	celebThreshold int,
) RelationshipService {
	return &relationshipService{
		followRepo:     followRepo,
		connRepo:       connRepo,
		suggestionRepo: suggestionRepo,
		relCache:       relCache,
		bus:            bus,
		celebThreshold: celebThreshold,
	}
}

func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string) error {
	if fromUserID == toUserID {
		return ErrFollowSelf
	}
	if err := s.followRepo.Create(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	s.refreshCelebrityMark(ctx, toUserID)
	s.bus.Publish(event.TopicFollowCreated, event.RelationEvent{FromUserID: fromUserID, ToUserID: toUserID})
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
	if err := s.followRepo.Delete(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	s.refreshCelebrityMark(ctx, toUserID)
	s.bus.Publish(event.TopicFollowRemoved, event.RelationEvent{FromUserID: fromUserID, ToUserID: toUserID})
	return nil
}

func (s *relationshipService) Connect(ctx context.Context, a, b string) error {
	if a == b {
		return ErrConnectSelf
	}
	if err := s.connRepo.Create(ctx, a, b); err != nil {
		return err
	}
	s.bus.Publish(event.TopicConnectionAccepted, event.RelationEvent{FromUserID: a, ToUserID: b})
	return nil
}

func (s *relationshipService) Disconnect(ctx context.Context, a, b string) error {
	if err := s.connRepo.Delete(ctx, a, b); err != nil {
		return err
	}
	s.bus.Publish(event.TopicConnectionRemoved, event.RelationEvent{FromUserID: a, ToUserID: b})
	return nil
}

func (s *relationshipService) SourceIDs(ctx context.Context, userID string) ([]string, error) {
	if ids, ok := s.relCache.GetSourceIDs(ctx, userID); ok {
		return ids, nil
	}
	following, err := s.followRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	conns, err := s.connRepo.UserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := lo.Uniq(append(following, conns...))
	s.relCache.CacheSourceIDs(ctx, userID, ids)
	return ids, nil
}

func (s *relationshipService) AudienceIDs(ctx context.Context, authorID string) ([]string, error) {
	if ids, ok := s.relCache.GetAudienceIDs(ctx, authorID); ok {
		return ids, nil
	}
	followers, err := s.followRepo.FollowerIDs(ctx, authorID)
	if err != nil {
		return nil, err
	}
	conns, err := s.connRepo.UserIDs(ctx, authorID)
	if err != nil {
		return nil, err
	}
	ids := lo.Uniq(append(followers, conns...))
	s.relCache.CacheAudienceIDs(ctx, authorID, ids)
	return ids, nil
}

func (s *relationshipService) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	return s.followRepo.FollowingIDs(ctx, userID)
}

func (s *relationshipService) FollowerIDs(ctx context.Context, userID string) ([]string, error) {
	return s.followRepo.FollowerIDs(ctx, userID)
}

func (s *relationshipService) ConnectionUserIDs(ctx context.Context, userID string) ([]string, error) {
	return s.connRepo.UserIDs(ctx, userID)
}

func (s *relationshipService) AreConnected(ctx context.Context, a, b string) (bool, error) {
	return s.connRepo.AreConnected(ctx, a, b)
}

func (s *relationshipService) Suggestions(ctx context.Context, userID string, limit int) ([]*model.User, error) {
	return s.suggestionRepo.Suggestions(ctx, userID, limit)
}

// refreshCelebrityMark 粉丝数跨过阈值时更新名人标记；降级时旧 outbox 靠 TTL 过期
func (s *relationshipService) refreshCelebrityMark(ctx context.Context, userID string) {
	cnt, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return
	}
	if cnt >= int64(s.celebThreshold) {
		s.relCache.MarkCelebrity(ctx, userID)
	} else {
		s.relCache.UnmarkCelebrity(ctx, userID)
	}
}
