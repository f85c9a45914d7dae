package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campushq/feedengine/internal/model"
)

type SuggestionRepository interface {
	Suggestions(ctx context.Context, userID string, limit int) ([]*model.User, error)
}

type suggestionRepository struct{ db *gorm.DB }

func NewSuggestionRepository(db *gorm.DB) SuggestionRepository {
	return &suggestionRepository{db: db}
}

// Suggestions 最近活跃、尚未被 userID 关注的用户
func (r *suggestionRepository) Suggestions(ctx context.Context, userID string, limit int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 5
	}
	var res []*model.User
	err := r.db.WithContext(ctx).
		Where("id <> ?", userID).
		Where("id NOT IN (?)", r.db.Model(&model.Follow{}).
			Select("followee_id").
			Where("follower_id = ?", userID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}
