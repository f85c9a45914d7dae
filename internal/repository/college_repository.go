package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campushq/feedengine/internal/model"
)

type CollegeRepository interface {
	AddMember(ctx context.Context, collegeID, userID string) error
	RemoveMember(ctx context.Context, collegeID, userID string) error
	CollegeIDs(ctx context.Context, userID string) ([]string, error)
}

type collegeRepository struct{ db *gorm.DB }

func NewCollegeRepository(db *gorm.DB) CollegeRepository { return &collegeRepository{db: db} }

func (r *collegeRepository) AddMember(ctx context.Context, collegeID, userID string) error {
	m := &model.CollegeMember{ID: uuid.New().String(), CollegeID: collegeID, UserID: userID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (r *collegeRepository) RemoveMember(ctx context.Context, collegeID, userID string) error {
	return r.db.WithContext(ctx).
		Where("college_id = ? AND user_id = ?", collegeID, userID).
		Delete(&model.CollegeMember{}).Error
}

func (r *collegeRepository) CollegeIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.CollegeMember{}).
		Where("user_id = ?", userID).
		Pluck("college_id", &ids).Error
	return ids, err
}
