package repository

import (
	"Reclaim/internal/model"
	"Reclaim/internal/pkg/consts"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemQuery 列表查询条件
type ItemQuery struct {
	Type     int8
	Category string
	City     string
	Lat      float64
	Lng      float64
	RadiusM  float64 // 0 表示不启用地理过滤
	Page     int
	PageSize int
	SortBy   string // created_at / views / date_occurred
	SortDesc bool
}

type ItemRepo interface {
	CreateItem(ctx context.Context, item *model.Item, images []*model.ItemImage) error
	GetItem(ctx context.Context, id uint64) (*model.Item, error)
	GetItemsByIDs(ctx context.Context, ids []uint64) ([]*model.Item, error)
	UpdateItem(ctx context.Context, item *model.Item) error
	DeleteItem(ctx context.Context, id uint64) error
	ListItems(ctx context.Context, q *ItemQuery) ([]*model.Item, int64, error)
	FindNearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]*model.Item, error)
	FindCandidates(ctx context.Context, itemType int8, category string, limit int) ([]*model.Item, error)

	IncrViews(ctx context.Context, id uint64) error
	ResolveItem(ctx context.Context, id uint64, resolvedBy uint64, at time.Time) error
	ExpireOverdue(ctx context.Context, now time.Time) ([]uint64, error)

	AppendMatches(ctx context.Context, matches []*model.ItemMatch) error
	GetMatches(ctx context.Context, itemID uint64) ([]*model.ItemMatch, error)

	CountItems(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status int8) (int64, error)
	CountMatches(ctx context.Context) (int64, error)
}

type itemRepoImpl struct {
	db *gorm.DB
}

func NewItemRepo(db *gorm.DB) ItemRepo {
	return &itemRepoImpl{db: db}
}

// CreateItem 物品与图片同事务落库
func (s *itemRepoImpl) CreateItem(ctx context.Context, item *model.Item, images []*model.ItemImage) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		for _, img := range images {
			img.ItemID = item.ID
		}
		if len(images) > 0 {
			if err := tx.Create(images).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *itemRepoImpl) GetItem(ctx context.Context, id uint64) (*model.Item, error) {
	var item model.Item
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		First(&item, id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *itemRepoImpl) GetItemsByIDs(ctx context.Context, ids []uint64) ([]*model.Item, error) {
	if len(ids) == 0 {
		return []*model.Item{}, nil
	}
	var items []*model.Item
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (s *itemRepoImpl) UpdateItem(ctx context.Context, item *model.Item) error {
	return s.db.WithContext(ctx).Updates(item).Error
}

// DeleteItem 物理删除物品及其图片与匹配记录
func (s *itemRepoImpl) DeleteItem(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.ItemImage{}, "item_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.ItemMatch{}, "item_id = ? OR matched_item_id = ?", id, id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Item{}, id).Error
	})
}

// ListItems 组合过滤 + 分页。地理过滤基于 ST_Distance_Sphere，
// 启用时按距离升序覆盖其他排序。
func (s *itemRepoImpl) ListItems(ctx context.Context, q *ItemQuery) ([]*model.Item, int64, error) {
	db := s.db.WithContext(ctx).Model(&model.Item{}).
		Where("status = ? AND is_deleted = 0", consts.ItemStatusActive)

	if q.Type != 0 {
		db = db.Where("type = ?", q.Type)
	}
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if q.City != "" {
		db = db.Where("city = ?", q.City)
	}
	if q.RadiusM > 0 {
		db = db.Where(
			"ST_Distance_Sphere(POINT(lng, lat), POINT(?, ?)) <= ?",
			q.Lng, q.Lat, q.RadiusM,
		)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if q.RadiusM > 0 {
		db = db.Order(clause.Expr{
			SQL:  "ST_Distance_Sphere(POINT(lng, lat), POINT(?, ?)) ASC",
			Vars: []interface{}{q.Lng, q.Lat},
		})
	} else {
		sortBy := q.SortBy
		switch sortBy {
		case "views", "date_occurred", "created_at":
		default:
			sortBy = "created_at"
		}
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		db = db.Order(sortBy + " " + dir)
	}

	var items []*model.Item
	err := db.Preload("Images").Preload("User").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&items).Error
	return items, total, err
}

// FindNearby 半径内的有效物品，最近的在前
func (s *itemRepoImpl) FindNearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]*model.Item, error) {
	var items []*model.Item
	err := s.db.WithContext(ctx).
		Where("status = ? AND is_deleted = 0", consts.ItemStatusActive).
		Where("ST_Distance_Sphere(POINT(lng, lat), POINT(?, ?)) <= ?", lng, lat, radiusM).
		Order(clause.Expr{
			SQL:  "ST_Distance_Sphere(POINT(lng, lat), POINT(?, ?)) ASC",
			Vars: []interface{}{lng, lat},
		}).
		Limit(limit).
		Preload("Images").
		Find(&items).Error
	return items, err
}

// FindCandidates 匹配候选：同分类、指定类型的有效物品
func (s *itemRepoImpl) FindCandidates(ctx context.Context, itemType int8, category string, limit int) ([]*model.Item, error) {
	var items []*model.Item
	err := s.db.WithContext(ctx).
		Where("status = ? AND is_deleted = 0 AND type = ? AND category = ?",
			consts.ItemStatusActive, itemType, category).
		Order("created_at DESC").
		Limit(limit).
		Preload("Images").
		Find(&items).Error
	return items, err
}

func (s *itemRepoImpl) IncrViews(ctx context.Context, id uint64) error {
	return s.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id).
		Update("views", gorm.Expr("views + 1")).Error
}

func (s *itemRepoImpl) ResolveItem(ctx context.Context, id uint64, resolvedBy uint64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      consts.ItemStatusResolved,
			"is_resolved": true,
			"resolved_at": at,
			"resolved_by": resolvedBy,
		}).Error
}

// ExpireOverdue 过期清理：把超过有效期的有效物品置为已过期，返回受影响的 ID
func (s *itemRepoImpl) ExpireOverdue(ctx context.Context, now time.Time) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).Model(&model.Item{}).
		Where("status = ? AND expires_at < ?", consts.ItemStatusActive, now).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}

	err = s.db.WithContext(ctx).Model(&model.Item{}).
		Where("id IN ?", ids).
		Update("status", consts.ItemStatusExpired).Error
	return ids, err
}

// AppendMatches 追加候选匹配，已存在的组合忽略
func (s *itemRepoImpl) AppendMatches(ctx context.Context, matches []*model.ItemMatch) error {
	if len(matches) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(matches).Error
}

func (s *itemRepoImpl) GetMatches(ctx context.Context, itemID uint64) ([]*model.ItemMatch, error) {
	var matches []*model.ItemMatch
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("matched_at DESC").
		Find(&matches).Error
	return matches, err
}

func (s *itemRepoImpl) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Item{}).
		Where("is_deleted = 0").Count(&count).Error
	return count, err
}

func (s *itemRepoImpl) CountByStatus(ctx context.Context, status int8) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Item{}).
		Where("is_deleted = 0 AND status = ?", status).Count(&count).Error
	return count, err
}

func (s *itemRepoImpl) CountMatches(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.ItemMatch{}).Count(&count).Error
	return count, err
}
