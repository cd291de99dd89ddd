package repository

import (
	"Reclaim/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardRow 周期榜聚合结果
type LeaderboardRow struct {
	UserID uint64
	Points int
}

type UserRepo interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id uint64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, id uint64, updates map[string]interface{}) error

	AddPoints(ctx context.Context, userID uint64, points int, reason string) (int, error)
	AddBadge(ctx context.Context, badge *model.UserBadge) error
	IncrItemsPosted(ctx context.Context, userID uint64) error
	IncrItemsReturned(ctx context.Context, userID uint64) error

	GetTopByPoints(ctx context.Context, limit int) ([]*model.User, error)
	SumPointsSince(ctx context.Context, since time.Time, limit int) ([]*LeaderboardRow, error)
	GetUsersByIDs(ctx context.Context, ids []uint64) ([]*model.User, error)
	CountUsers(ctx context.Context) (int64, error)
	ListUserIDs(ctx context.Context) ([]uint64, error)
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepoImpl{db: db}
}

func (s *userRepoImpl) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *userRepoImpl) GetUserByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Preload("Badges").First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userRepoImpl) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *userRepoImpl) UpdateUser(ctx context.Context, id uint64, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates).Error
}

// AddPoints 原子加分并写积分流水，返回加分后的总积分
func (s *userRepoImpl) AddPoints(ctx context.Context, userID uint64, points int, reason string) (int, error) {
	var total int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.User{}).Where("id = ?", userID).
			Update("points", gorm.Expr("points + ?", points)).Error
		if err != nil {
			return err
		}

		logRow := &model.PointsLog{
			UserID: userID,
			Points: points,
			Reason: reason,
		}
		if err := tx.Create(logRow).Error; err != nil {
			return err
		}

		return tx.Model(&model.User{}).Select("points").Where("id = ?", userID).Scan(&total).Error
	})
	return total, err
}

// AddBadge 同名徽章只保留第一枚
func (s *userRepoImpl) AddBadge(ctx context.Context, badge *model.UserBadge) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(badge).Error
}

func (s *userRepoImpl) IncrItemsPosted(ctx context.Context, userID uint64) error {
	return s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		Update("items_posted", gorm.Expr("items_posted + 1")).Error
}

func (s *userRepoImpl) IncrItemsReturned(ctx context.Context, userID uint64) error {
	return s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		Update("items_returned", gorm.Expr("items_returned + 1")).Error
}

func (s *userRepoImpl) GetTopByPoints(ctx context.Context, limit int) ([]*model.User, error) {
	var users []*model.User
	err := s.db.WithContext(ctx).
		Where("is_delete = 0 AND is_ban = 0").
		Order("points DESC, id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// SumPointsSince 按时间窗口聚合积分流水，用于周榜/月榜
func (s *userRepoImpl) SumPointsSince(ctx context.Context, since time.Time, limit int) ([]*LeaderboardRow, error) {
	var rows []*LeaderboardRow
	err := s.db.WithContext(ctx).Model(&model.PointsLog{}).
		Select("user_id, SUM(points) AS points").
		Where("created_at >= ?", since).
		Group("user_id").
		Order("points DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (s *userRepoImpl) GetUsersByIDs(ctx context.Context, ids []uint64) ([]*model.User, error) {
	var users []*model.User
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (s *userRepoImpl) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("is_delete = 0").Count(&count).Error
	return count, err
}

func (s *userRepoImpl) ListUserIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("is_delete = 0").Pluck("id", &ids).Error
	return ids, err
}
