package model

import "time"

// User 用户（feed 补水所需的展示字段）
type User struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Username  string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email     string `gorm:"type:varchar(128);uniqueIndex;not null"`
	AvatarURL string `gorm:"type:varchar(256)"`
	Headline  string `gorm:"type:varchar(256)"`
	CollegeID string `gorm:"type:varchar(36);index:idx_user_college"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }
