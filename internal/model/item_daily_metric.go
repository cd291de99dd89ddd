package model

import "time"

// ItemDailyMetric 单日浏览量聚合，由 Kafka 消费端补全
type ItemDailyMetric struct {
	ID         uint64    `gorm:"primaryKey"`
	ItemID     uint64    `gorm:"not null;uniqueIndex:idx_item_date"`
	MetricDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_item_date"`
	Views      int       `gorm:"type:int;not null;default:0"`
	CreatedAt  time.Time
}

func (ItemDailyMetric) TableName() string {
	return "item_daily_metrics"
}
