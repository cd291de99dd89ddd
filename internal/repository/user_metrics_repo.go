package repository

import (
	"Reclaim/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserMetricsRepo interface {
	UpsertDailySnapshot(ctx context.Context, m *model.UserMetrics) error
}

type userMetricsRepoImpl struct {
	db *gorm.DB
}

func NewUserMetricsRepo(db *gorm.DB) UserMetricsRepo {
	return &userMetricsRepoImpl{db: db}
}

// UpsertDailySnapshot 每用户每天一行，重复写入以最新值覆盖
func (s *userMetricsRepoImpl) UpsertDailySnapshot(ctx context.Context, m *model.UserMetrics) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "metric_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_points", "items_posted", "items_returned"}),
		}).
		Create(m).Error
}
