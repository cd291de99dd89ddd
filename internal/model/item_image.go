package model

import "time"

// ItemImage 物品图片，ObjectName 为对象存储内的 Key
type ItemImage struct {
	ID         uint64 `gorm:"primaryKey" json:"id"`
	ItemID     uint64 `gorm:"not null;index:idx_item_id" json:"item_id"`
	URL        string `gorm:"type:varchar(512);not null" json:"url"`
	ThumbURL   string `gorm:"type:varchar(512)" json:"thumb_url"`
	ObjectName string `gorm:"type:varchar(255);not null" json:"object_name"`
	Caption    string `gorm:"type:varchar(255)" json:"caption"`
	SortOrder  int    `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt  time.Time
}

func (ItemImage) TableName() string { return "item_images" }
