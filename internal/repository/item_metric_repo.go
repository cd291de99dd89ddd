package repository

import (
	"Reclaim/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemMetricRepo interface {
	IncrDailyViews(ctx context.Context, itemID uint64, date time.Time, delta int) error
	SumViewsSince(ctx context.Context, since time.Time) (int64, error)
}

type itemMetricRepoImpl struct {
	db *gorm.DB
}

func NewItemMetricRepo(db *gorm.DB) ItemMetricRepo {
	return &itemMetricRepoImpl{db: db}
}

// IncrDailyViews 当日聚合行不存在则插入，存在则累加
func (s *itemMetricRepoImpl) IncrDailyViews(ctx context.Context, itemID uint64, date time.Time, delta int) error {
	row := &model.ItemDailyMetric{
		ItemID:     itemID,
		MetricDate: date,
		Views:      delta,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}, {Name: "metric_date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"views": gorm.Expr("views + ?", delta)}),
		}).
		Create(row).Error
}

func (s *itemMetricRepoImpl) SumViewsSince(ctx context.Context, since time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&model.ItemDailyMetric{}).
		Where("metric_date >= ?", since).
		Select("COALESCE(SUM(views), 0)").
		Scan(&total).Error
	return total, err
}
