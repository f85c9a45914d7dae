package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushq/feedengine/internal/model"
)

type ConnectionRepository interface {
	Create(ctx context.Context, a, b string) error
	Delete(ctx context.Context, a, b string) error
	UserIDs(ctx context.Context, userID string) ([]string, error)
	AreConnected(ctx context.Context, a, b string) (bool, error)
}

type connectionRepository struct{ db *gorm.DB }

func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// 存一行，pair 规范化为 user_id < peer_id
func normalizePair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

func (r *connectionRepository) Create(ctx context.Context, a, b string) error {
	lo, hi := normalizePair(a, b)
	c := &model.Connection{ID: uuid.New().String(), UserID: lo, PeerID: hi}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(c).Error
}

func (r *connectionRepository) Delete(ctx context.Context, a, b string) error {
	lo, hi := normalizePair(a, b)
	return r.db.WithContext(ctx).
		Where("user_id = ? AND peer_id = ?", lo, hi).
		Delete(&model.Connection{}).Error
}

func (r *connectionRepository) UserIDs(ctx context.Context, userID string) ([]string, error) {
	var rows []model.Connection
	err := r.db.WithContext(ctx).
		Where("user_id = ? OR peer_id = ?", userID, userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, c := range rows {
		if c.UserID == userID {
			ids = append(ids, c.PeerID)
		} else {
			ids = append(ids, c.UserID)
		}
	}
	return ids, nil
}

func (r *connectionRepository) AreConnected(ctx context.Context, a, b string) (bool, error) {
	lo, hi := normalizePair(a, b)
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Connection{}).
		Where("user_id = ? AND peer_id = ?", lo, hi).
		Count(&cnt).Error
	return cnt > 0, err
}
