package model

import "time"

// UserBadge 徽章，同一用户下名称唯一
type UserBadge struct {
	ID          uint64    `gorm:"primaryKey"`
	UserID      uint64    `gorm:"not null;uniqueIndex:idx_user_badge"`
	Name        string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_user_badge"`
	Description string    `gorm:"type:varchar(255)"`
	EarnedAt    time.Time `gorm:"not null"`
}

func (UserBadge) TableName() string { return "user_badges" }
