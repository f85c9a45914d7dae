package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushq/feedengine/internal/model"
)

type LikeRepository interface {
	Create(ctx context.Context, userID, postID string) (bool, error)
	Delete(ctx context.Context, userID, postID string) (bool, error)
	StatusForPosts(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

type likeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

// Create 幂等写入；返回是否真的新增了一行（计数只在新增时 +1）
func (r *likeRepository) Create(ctx context.Context, userID, postID string) (bool, error) {
	l := &model.Like{ID: uuid.New().String(), UserID: userID, PostID: postID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l)
	return res.RowsAffected > 0, res.Error
}

func (r *likeRepository) Delete(ctx context.Context, userID, postID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&model.Like{})
	return res.RowsAffected > 0, res.Error
}

func (r *likeRepository) StatusForPosts(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	status := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		status[id] = false
	}
	if len(postIDs) == 0 {
		return status, nil
	}
	var liked []string
	err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &liked).Error
	if err != nil {
		return nil, err
	}
	for _, id := range liked {
		status[id] = true
	}
	return status, nil
}
