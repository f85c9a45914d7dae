package model

import "time"

// Connection 双向人脉关系，已接受的存一行（user_id < peer_id 规范化）
type Connection struct {
	ID     string `gorm:"primaryKey;type:varchar(36)"`
	UserID string `gorm:"type:varchar(36);index:idx_conn_user;index:idx_conn_pair,unique;not null"`
	PeerID string `gorm:"type:varchar(36);not null;index:idx_conn_peer;index:idx_conn_pair,unique"`
	CreatedAt time.Time
}

func (Connection) TableName() string { return "connections" }
