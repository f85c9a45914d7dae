package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/campushq/feedengine/internal/model"
)

var ErrPostNotFound = errors.New("post not found")

// FeedCandidateQuery 时间线回源查询参数（可见性规则见 FindFeedCandidates）
type FeedCandidateQuery struct {
	ViewerID     string
	AuthorIDs    []string // viewer 自己 + 关注/人脉作者
	ConnectedIDs []string // 与 viewer 已互为人脉的作者
	CollegeIDs   []string // viewer 所属学院
	Cursor       int64    // epoch millis，0 表示第一页
	Limit        int
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id string) (*model.Post, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Post, error)
	FindRecentPublic(ctx context.Context, window time.Duration, maxRows int) ([]*model.Post, error)
	FindFeedCandidates(ctx context.Context, q FeedCandidateQuery) ([]*model.Post, error)
	SoftDelete(ctx context.Context, id string) error
	UpdateLikeCount(ctx context.Context, id string, delta int64) (int64, error)
	UpdateCommentCount(ctx context.Context, id string, delta int64) (int64, error)
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).Where("id = ? AND deleted = ?", id, false).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []*model.Post
	err := r.db.WithContext(ctx).Where("id IN ? AND deleted = ?", ids, false).Find(&res).Error
	return res, err
}

func (r *postRepository) FindRecentPublic(ctx context.Context, window time.Duration, maxRows int) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Where("visibility = ? AND deleted = ? AND created_at > ?", model.VisibilityPublic, false, time.Now().Add(-window)).
		Order("created_at DESC").
		Limit(maxRows).
		Find(&res).Error
	return res, err
}

// FindFeedCandidates 时间线缓存 miss 时的回源查询。
// 可见性：自己的帖子恒可见；关注作者的 public；已互为人脉作者的 connections；
// 所属学院话题下的 public/college。按创建时间降序、cursor 之前的一页。
func (r *postRepository) FindFeedCandidates(ctx context.Context, q FeedCandidateQuery) ([]*model.Post, error) {
	db := r.db.WithContext(ctx).Where("deleted = ?", false)

	vis := r.db.Where("author_id = ?", q.ViewerID)
	if len(q.AuthorIDs) > 0 {
		vis = vis.Or("author_id IN ? AND visibility = ?", q.AuthorIDs, model.VisibilityPublic)
	}
	if len(q.ConnectedIDs) > 0 {
		vis = vis.Or("author_id IN ? AND visibility = ?", q.ConnectedIDs, model.VisibilityConnections)
	}
	if len(q.CollegeIDs) > 0 {
		vis = vis.Or("college_id IN ? AND visibility IN ?", q.CollegeIDs,
			[]string{model.VisibilityPublic, model.VisibilityCollege})
	}
	db = db.Where(vis)

	if q.Cursor > 0 {
		db = db.Where("created_at < ?", time.UnixMilli(q.Cursor))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	var res []*model.Post
	err := db.Order("created_at DESC").Limit(limit).Find(&res).Error
	return res, err
}

func (r *postRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		Update("deleted", true).Error
}

func (r *postRepository) UpdateLikeCount(ctx context.Context, id string, delta int64) (int64, error) {
	return r.bumpCounter(ctx, id, "like_count", delta)
}

func (r *postRepository) UpdateCommentCount(ctx context.Context, id string, delta int64) (int64, error) {
	return r.bumpCounter(ctx, id, "comment_count", delta)
}

func (r *postRepository) bumpCounter(ctx context.Context, id, column string, delta int64) (int64, error) {
	err := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		Update(column, gorm.Expr(column+" + ?", delta)).Error
	if err != nil {
		return 0, err
	}
	var value int64
	err = r.db.WithContext(ctx).Model(&model.Post{}).
		Where("id = ?", id).
		Pluck(column, &value).Error
	return value, err
}
