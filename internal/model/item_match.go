package model

import "time"

// ItemMatch 持久化的候选匹配，仅在创建时和通知端点写入。
// 后续实时查询不回写此表，允许与实时结果漂移。
type ItemMatch struct {
	ID            uint64    `gorm:"primaryKey" json:"id"`
	ItemID        uint64    `gorm:"not null;uniqueIndex:idx_item_matched" json:"item_id"`
	MatchedItemID uint64    `gorm:"not null;uniqueIndex:idx_item_matched" json:"matched_item_id"`
	Confidence    float64   `gorm:"not null;default:0" json:"confidence"`
	MatchedAt     time.Time `gorm:"not null" json:"matched_at"`
}

func (ItemMatch) TableName() string { return "item_matches" }
