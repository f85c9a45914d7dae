package model

import "time"

// CollegeMember 学院成员关系（feed 只关心成员资格，学院主数据在别的模块）
type CollegeMember struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	CollegeID string `gorm:"type:varchar(36);index:idx_member_college;index:idx_member_pair,unique;not null"`
	UserID    string `gorm:"type:varchar(36);not null;index:idx_member_user;index:idx_member_pair,unique"`
	CreatedAt time.Time
}

func (CollegeMember) TableName() string { return "college_members" }
