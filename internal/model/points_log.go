package model

import "time"

// PointsLog 积分流水，周榜/月榜按时间窗口聚合此表
type PointsLog struct {
	ID        uint64    `gorm:"primaryKey"`
	UserID    uint64    `gorm:"not null;index:idx_user_time"`
	Points    int       `gorm:"not null"`
	Reason    string    `gorm:"type:varchar(50);not null"` // post_item / resolve_item
	CreatedAt time.Time `gorm:"index:idx_user_time"`
}

func (PointsLog) TableName() string { return "points_logs" }
