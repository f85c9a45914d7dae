package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/campushq/feedengine/internal/cache"
	"github.com/campushq/feedengine/internal/event"
	"github.com/campushq/feedengine/internal/model"
	"github.com/campushq/feedengine/internal/repository"
)

var ErrNotPostAuthor = errors.New("not the post author")

// PostService 发帖/删帖：落库 + 发事件，扇出由 dispatcher 消费事件完成
type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	snapshots *cache.SnapshotCache
	bus       event.Bus
}

func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository, snapshots *cache.SnapshotCache, bus event.Bus) *PostService {
	return &PostService{postRepo: postRepo, userRepo: userRepo, snapshots: snapshots, bus: bus}
}

type PublishInput struct {
	AuthorID   string
	Content    string
	MediaURLs  string
	Visibility string
	CollegeID  string
}

func (s *PostService) Publish(ctx context.Context, in PublishInput) (*model.Post, error) {
	if in.Visibility == "" {
		in.Visibility = model.VisibilityPublic
	}
	now := time.Now()
	post := &model.Post{
		ID:         uuid.New().String(),
		AuthorID:   in.AuthorID,
		Content:    in.Content,
		MediaURLs:  in.MediaURLs,
		Visibility: in.Visibility,
		CollegeID:  in.CollegeID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	// 预热快照，扇出后的首批读命中缓存
	author, err := s.userRepo.FindByID(ctx, in.AuthorID)
	if err != nil {
		author = nil
	}
	s.snapshots.CachePost(ctx, cache.SnapshotFromPost(post, author))

	s.bus.Publish(event.TopicPostCreated, event.PostEvent{
		PostID:     post.ID,
		AuthorID:   post.AuthorID,
		Visibility: post.Visibility,
		CollegeID:  post.CollegeID,
		CreatedAt:  post.CreatedAt,
	})
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return ErrNotPostAuthor
	}
	if err := s.postRepo.SoftDelete(ctx, postID); err != nil {
		return err
	}
	s.bus.Publish(event.TopicPostDeleted, event.PostEvent{
		PostID:     post.ID,
		AuthorID:   post.AuthorID,
		Visibility: post.Visibility,
		CollegeID:  post.CollegeID,
		CreatedAt:  post.CreatedAt,
	})
	return nil
}

// UpdateCommentCount 评论模块（外部协作方）的回调：计数落库 + 广播给快照缓存
func (s *PostService) UpdateCommentCount(ctx context.Context, postID string, delta int64) error {
	count, err := s.postRepo.UpdateCommentCount(ctx, postID, delta)
	if err != nil {
		return err
	}
	s.bus.Publish(event.TopicPostCommentChanged, event.CountEvent{PostID: postID, Count: count})
	return nil
}
