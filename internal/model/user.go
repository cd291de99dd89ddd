package model

import (
	"time"
)

type User struct {
	ID        uint64  `gorm:"primaryKey"`
	Email     *string `gorm:"type:varchar(100);uniqueIndex:idx_email"`
	Password  *string `gorm:"type:varchar(255)"`
	Nickname  string  `gorm:"type:varchar(50);not null"`
	AvatarURL string  `gorm:"type:varchar(255)"`
	Bio       *string `gorm:"type:varchar(200)"`
	Phone     *string `gorm:"type:varchar(30)"`

	// 游戏化积分，只增不减
	Points        int     `gorm:"not null;default:0"`
	ItemsPosted   int     `gorm:"not null;default:0"`
	ItemsReturned int     `gorm:"not null;default:0"`
	HelpfulRating float64 `gorm:"not null;default:0"`

	// 通知偏好
	NotifyEmail bool `gorm:"type:tinyint(1);not null;default:1"`
	NotifyPush  bool `gorm:"type:tinyint(1);not null;default:1"`

	IsBan     bool `gorm:"type:tinyint(1);default:0"`
	IsDelete  bool `gorm:"type:tinyint(1);default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Badges []UserBadge `gorm:"foreignKey:UserID;references:ID"`
}

func (User) TableName() string {
	return "users"
}

// Level 等级完全由积分推导：每 100 分升一级
func (u *User) Level() int {
	return u.Points/100 + 1
}
