package service

import (
	"context"

	"github.com/campushq/feedengine/internal/event"
	"github.com/campushq/feedengine/internal/repository"
)

// LikeService 点赞/取消点赞：幂等落库，计数变化才发事件
type LikeService struct {
	likeRepo repository.LikeRepository
	postRepo repository.PostRepository
	bus      event.Bus
}

func NewLikeService(likeRepo repository.LikeRepository, postRepo repository.PostRepository, bus event.Bus) *LikeService {
	return &LikeService{likeRepo: likeRepo, postRepo: postRepo, bus: bus}
}

func (s *LikeService) Like(ctx context.Context, userID, postID string) error {
	created, err := s.likeRepo.Create(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !created {
		return nil // 重复点赞，不动计数
	}
	count, err := s.postRepo.UpdateLikeCount(ctx, postID, 1)
	if err != nil {
		return err
	}
	s.bus.Publish(event.TopicPostLikeChanged, event.CountEvent{PostID: postID, Count: count})
	return nil
}

func (s *LikeService) Unlike(ctx context.Context, userID, postID string) error {
	removed, err := s.likeRepo.Delete(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}
	count, err := s.postRepo.UpdateLikeCount(ctx, postID, -1)
	if err != nil {
		return err
	}
	s.bus.Publish(event.TopicPostLikeChanged, event.CountEvent{PostID: postID, Count: count})
	return nil
}

func (s *LikeService) StatusForPosts(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	return s.likeRepo.StatusForPosts(ctx, userID, postIDs)
}
