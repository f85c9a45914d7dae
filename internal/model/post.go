package model

import "time"

// 帖子可见性
const (
	VisibilityPublic      = "public"
	VisibilityConnections = "connections"
	VisibilityCollege     = "college"
	VisibilityPrivate     = "private"
)

// Post 内容主体
type Post struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	AuthorID     string    `gorm:"type:varchar(36);index:idx_post_author;not null"`
	Content      string    `gorm:"type:text"`
	MediaURLs    string    `gorm:"type:text"` // JSON array of urls
	Visibility   string    `gorm:"type:varchar(16);index;not null;default:public"`
	CollegeID    string    `gorm:"type:varchar(36);index:idx_post_college"`
	LikeCount    int64     `gorm:"not null;default:0"`
	CommentCount int64     `gorm:"not null;default:0"`
	Deleted      bool      `gorm:"index;not null;default:false"`
	CreatedAt    time.Time `gorm:"index:idx_post_created"`
	UpdatedAt    time.Time
}

func (Post) TableName() string { return "posts" }

// Engagement 互动总量（点赞 + 2*评论），打分用
func (p *Post) Engagement() int64 { return p.LikeCount + 2*p.CommentCount }
