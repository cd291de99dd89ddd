package service

import (
	"Reclaim/internal/api/dto"
	"Reclaim/internal/model"
	"Reclaim/internal/pkg/consts"
	"Reclaim/internal/pkg/util"
	"Reclaim/internal/repository"
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
)

type MatchService interface {
	FindMatches(ctx context.Context, itemID uint64) ([]*dto.MatchDTO, error)
	SeedMatches(ctx context.Context, item *model.Item) (int, error)
	RecordMatch(ctx context.Context, userID, itemID, matchedItemID uint64) error
}

type MatchServiceImpl struct {
	itemRepo repository.ItemRepo
}

func NewMatchService(itemRepo repository.ItemRepo) MatchService {
	return &MatchServiceImpl{itemRepo: itemRepo}
}

type matchCandidate struct {
	item      *model.Item
	distanceM float64
}

// FindMatches 实时匹配：对向类型、同分类、半径内的有效物品，
// 最近的在前，不含自己发布的物品。
func (s *MatchServiceImpl) FindMatches(ctx context.Context, itemID uint64) ([]*dto.MatchDTO, error) {
	item, err := s.itemRepo.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	candidates, err := s.findCandidates(ctx, item)
	if err != nil {
		return nil, err
	}

	matches := make([]*dto.MatchDTO, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, &dto.MatchDTO{
			Item:       buildItemDTO(c.item),
			Confidence: consts.MatchSeedConfidence,
			DistanceM:  c.distanceM,
			MatchedAt:  time.Now(),
		})
	}
	return matches, nil
}

// SeedMatches 发布时落一批候选匹配，双向各写一行，返回候选数
func (s *MatchServiceImpl) SeedMatches(ctx context.Context, item *model.Item) (int, error) {
	candidates, err := s.findCandidates(ctx, item)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	now := time.Now()
	rows := make([]*model.ItemMatch, 0, len(candidates)*2)
	for _, c := range candidates {
		rows = append(rows,
			&model.ItemMatch{ItemID: item.ID, MatchedItemID: c.item.ID, Confidence: consts.MatchSeedConfidence, MatchedAt: now},
			&model.ItemMatch{ItemID: c.item.ID, MatchedItemID: item.ID, Confidence: consts.MatchSeedConfidence, MatchedAt: now},
		)
	}
	if err := s.itemRepo.AppendMatches(ctx, rows); err != nil {
		return 0, err
	}
	return len(candidates), nil
}

// RecordMatch 用户手动确认两件物品相关，双向持久化
func (s *MatchServiceImpl) RecordMatch(ctx context.Context, userID, itemID, matchedItemID uint64) error {
	item, err := s.itemRepo.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return err
	}
	if item.UserID != userID {
		return ErrNotOwner
	}

	matched, err := s.itemRepo.GetItem(ctx, matchedItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return err
	}

	now := time.Now()
	return s.itemRepo.AppendMatches(ctx, []*model.ItemMatch{
		{ItemID: item.ID, MatchedItemID: matched.ID, Confidence: consts.MatchSeedConfidence, MatchedAt: now},
		{ItemID: matched.ID, MatchedItemID: item.ID, Confidence: consts.MatchSeedConfidence, MatchedAt: now},
	})
}

func (s *MatchServiceImpl) findCandidates(ctx context.Context, item *model.Item) ([]*matchCandidate, error) {
	oppositeType := consts.ItemTypeFound
	if item.Type == consts.ItemTypeFound {
		oppositeType = consts.ItemTypeLost
	}

	// 候选池按分类粗筛，半径过滤在内存完成
	pool, err := s.itemRepo.FindCandidates(ctx, oppositeType, item.Category, 200)
	if err != nil {
		return nil, err
	}

	candidates := make([]*matchCandidate, 0, len(pool))
	for _, c := range pool {
		if c.ID == item.ID || c.UserID == item.UserID {
			continue
		}
		d := util.HaversineMeters(item.Lat, item.Lng, c.Lat, c.Lng)
		if d > consts.MatchRadiusMeters {
			continue
		}
		candidates = append(candidates, &matchCandidate{item: c, distanceM: d})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distanceM < candidates[j].distanceM
	})
	if len(candidates) > consts.MatchLimit {
		candidates = candidates[:consts.MatchLimit]
	}
	return candidates, nil
}
