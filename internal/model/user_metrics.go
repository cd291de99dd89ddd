package model

import "time"

// UserMetrics 每日积分快照
type UserMetrics struct {
	ID            uint64    `gorm:"primaryKey"`
	UserID        uint64    `gorm:"not null;uniqueIndex:idx_user_date"`
	MetricDate    time.Time `gorm:"type:date;not null;uniqueIndex:idx_user_date"`
	TotalPoints   int       `gorm:"type:int;not null;default:0"`
	ItemsPosted   int       `gorm:"type:int;not null;default:0"`
	ItemsReturned int       `gorm:"type:int;not null;default:0"`
	CreatedAt     time.Time
}

func (UserMetrics) TableName() string {
	return "user_metrics"
}
