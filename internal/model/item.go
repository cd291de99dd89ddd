package model

import (
	"time"
)

type Item struct {
	ID          uint64 `gorm:"primaryKey"`
	UserID      uint64 `gorm:"not null;index:idx_user_id" json:"user_id"`
	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"not null" json:"description"`
	Type        int8   `gorm:"not null;index:idx_type_category" json:"type"`                      // 1:丢失, 2:拾获
	Category    string `gorm:"type:varchar(32);not null;index:idx_type_category" json:"category"` // 闭合枚举，见 consts
	Status      int8   `gorm:"not null;default:0;index" json:"status"`                            // 0:有效, 1:已找回, 2:已过期
	Tags        string `gorm:"type:varchar(255)" json:"tags"`                                     // 逗号分隔
	ContactInfo string `gorm:"type:varchar(255)" json:"contact_info"`
	Reward      *string `gorm:"type:varchar(255)" json:"reward"`

	// 位置信息，半径查询走 ST_Distance_Sphere
	Address string  `gorm:"type:varchar(255)" json:"address"`
	City    string  `gorm:"type:varchar(100);not null" json:"city"`
	State   string  `gorm:"type:varchar(100)" json:"state"`
	Country string  `gorm:"type:varchar(100)" json:"country"`
	Lat     float64 `gorm:"not null" json:"lat"`
	Lng     float64 `gorm:"not null" json:"lng"`

	DateOccurred time.Time  `gorm:"not null" json:"date_occurred"`
	Views        int        `gorm:"not null;default:0" json:"views"`
	IsResolved   bool       `gorm:"type:tinyint(1);not null;default:0" json:"is_resolved"`
	ResolvedAt   *time.Time `json:"resolved_at"`
	ResolvedBy   *uint64    `json:"resolved_by"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	IsDeleted    bool       `gorm:"type:tinyint(1);not null;default:0" json:"is_deleted"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// 关联关系
	User    User        `gorm:"foreignKey:UserID;references:ID"`
	Images  []ItemImage `gorm:"foreignKey:ItemID;references:ID"`
	Matches []ItemMatch `gorm:"foreignKey:ItemID;references:ID"`
}

func (Item) TableName() string {
	return "items"
}
