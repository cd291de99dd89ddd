package service

import (
	"Reclaim/internal/api/dto"
	"Reclaim/internal/model"
	"Reclaim/internal/pkg/consts"
	"Reclaim/internal/pkg/minio"
	"Reclaim/internal/pkg/redis"
	"Reclaim/internal/pkg/security"
	"Reclaim/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"time"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

type UserService interface {
	Register(ctx context.Context, regDTO *dto.RegisterDTO) error
	Login(ctx context.Context, credDTO *dto.CredentialDTO) (string, error)
	Logout(ctx context.Context, token string) error
	GetProfile(ctx context.Context, id uint64) (*dto.UserDTO, error)
	UpdateProfile(ctx context.Context, id uint64, upDTO *dto.UpdateProfileDTO) error
	UpdatePassword(ctx context.Context, id uint64, pwDTO *dto.ChangePasswordDTO) error
	UpdateAvatar(ctx context.Context, id uint64, objectName string) error

	AwardPoints(ctx context.Context, userID uint64, points int, reason string) error
	RecordItemPosted(ctx context.Context, userID uint64) error
	RecordItemReturned(ctx context.Context, userID uint64) error
	GetLeaderboard(ctx context.Context, period string, limit int) ([]*dto.LeaderboardEntryDTO, error)
	GetCommunityStats(ctx context.Context) (*dto.CommunityStatsDTO, error)
}

type UserServiceImpl struct {
	userRepo repository.UserRepo
	itemRepo repository.ItemRepo
}

func NewUserService(userRepo repository.UserRepo, itemRepo repository.ItemRepo) UserService {
	return &UserServiceImpl{
		userRepo: userRepo,
		itemRepo: itemRepo,
	}
}

func (s *UserServiceImpl) Register(ctx context.Context, regDTO *dto.RegisterDTO) error {
	findUser, err := s.userRepo.GetUserByEmail(ctx, regDTO.Email)
	if err != nil {
		return err
	}
	if findUser != nil {
		return ErrUserExist
	}

	passwordHash, err := security.HashPassword(regDTO.Password)
	if err != nil {
		return err
	}

	user := &model.User{
		Email:     &regDTO.Email,
		Password:  &passwordHash,
		Nickname:  regDTO.Nickname,
		AvatarURL: consts.DefaultAvatarURL,
	}

	return s.userRepo.CreateUser(ctx, user)
}

func (s *UserServiceImpl) Login(ctx context.Context, credDTO *dto.CredentialDTO) (string, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, credDTO.Email)
	if err != nil {
		return "", err
	}
	if user == nil || user.IsDelete {
		return "", ErrUserNotFound
	}
	if user.IsBan {
		return "", ErrUserBan
	}
	if user.Password == nil {
		return "", ErrPasswordIncorrect
	}
	if err := security.CheckPasswordHash(credDTO.Password, *user.Password); err != nil {
		return "", ErrPasswordIncorrect
	}

	return security.GenerateToken(user.ID)
}

// Logout 将令牌签名拉黑，有效期与令牌一致
func (s *UserServiceImpl) Logout(ctx context.Context, token string) error {
	signature, err := security.ExtractSignature(token)
	if err != nil {
		return err
	}
	return redis.SetWithExpiration(ctx, consts.TokenBlacklistKey+signature, true, security.JWTExpirationTime)
}

func (s *UserServiceImpl) GetProfile(ctx context.Context, id uint64) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.toUserDTO(user), nil
}

func (s *UserServiceImpl) UpdateProfile(ctx context.Context, id uint64, upDTO *dto.UpdateProfileDTO) error {
	updates := make(map[string]interface{})
	if upDTO.Nickname != nil {
		updates["nickname"] = *upDTO.Nickname
	}
	if upDTO.Bio != nil {
		updates["bio"] = *upDTO.Bio
	}
	if upDTO.Phone != nil {
		updates["phone"] = *upDTO.Phone
	}
	if upDTO.NotifyEmail != nil {
		updates["notify_email"] = *upDTO.NotifyEmail
	}
	if upDTO.NotifyPush != nil {
		updates["notify_push"] = *upDTO.NotifyPush
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.userRepo.UpdateUser(ctx, id, updates); err != nil {
		return err
	}
	_ = redis.DeleteKey(ctx, consts.UserSimpleInfoKey+strconv.FormatUint(id, 10))
	return nil
}

func (s *UserServiceImpl) UpdatePassword(ctx context.Context, id uint64, pwDTO *dto.ChangePasswordDTO) error {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Password == nil {
		return ErrPasswordIncorrect
	}
	if err := security.CheckPasswordHash(pwDTO.OldPassword, *user.Password); err != nil {
		return ErrPasswordIncorrect
	}

	passwordHash, err := security.HashPassword(pwDTO.NewPassword)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateUser(ctx, id, map[string]interface{}{"password": passwordHash})
}

func (s *UserServiceImpl) UpdateAvatar(ctx context.Context, id uint64, objectName string) error {
	if err := s.userRepo.UpdateUser(ctx, id, map[string]interface{}{"avatar_url": objectName}); err != nil {
		return err
	}
	_ = redis.DeleteKey(ctx, consts.UserSimpleInfoKey+strconv.FormatUint(id, 10))
	return nil
}

// AwardPoints 加分并处理升级副作用：跨越等级线补发等级徽章，同步排行榜 ZSET。
// 积分只增不减，调用方传入的 points 必须为正。
func (s *UserServiceImpl) AwardPoints(ctx context.Context, userID uint64, points int, reason string) error {
	newTotal, err := s.userRepo.AddPoints(ctx, userID, points, reason)
	if err != nil {
		return err
	}

	oldLevel := (newTotal-points)/consts.PointsPerLevel + 1
	newLevel := newTotal/consts.PointsPerLevel + 1
	for lv := oldLevel + 1; lv <= newLevel; lv++ {
		badge := &model.UserBadge{
			UserID:      userID,
			Name:        "Level " + strconv.Itoa(lv),
			Description: "达到等级 " + strconv.Itoa(lv),
			EarnedAt:    time.Now(),
		}
		if err := s.userRepo.AddBadge(ctx, badge); err != nil {
			log.ErrorContext(ctx, "award level badge error", "userID", userID, "level", lv, "err", err)
		}
	}

	// 排行榜缓存失败不影响主流程，全量榜兜底走 DB
	if err := redis.ZIncrBy(ctx, consts.LeaderboardKey, float64(points), strconv.FormatUint(userID, 10)); err != nil {
		log.ErrorContext(ctx, "leaderboard zincrby error", "userID", userID, "err", err)
	}

	return nil
}

// RecordItemPosted 发布计数加一
func (s *UserServiceImpl) RecordItemPosted(ctx context.Context, userID uint64) error {
	return s.userRepo.IncrItemsPosted(ctx, userID)
}

// RecordItemReturned 归还计数加一，计在实际归还者头上
func (s *UserServiceImpl) RecordItemReturned(ctx context.Context, userID uint64) error {
	return s.userRepo.IncrItemsReturned(ctx, userID)
}

// GetLeaderboard 排行榜。all 优先走 Redis ZSET，空则回源 DB；
// week/month 按积分流水时间窗口聚合。
func (s *UserServiceImpl) GetLeaderboard(ctx context.Context, period string, limit int) ([]*dto.LeaderboardEntryDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	switch period {
	case "week":
		return s.periodLeaderboard(ctx, time.Now().AddDate(0, 0, -7), limit)
	case "month":
		return s.periodLeaderboard(ctx, time.Now().AddDate(0, -1, 0), limit)
	default:
		return s.allTimeLeaderboard(ctx, limit)
	}
}

func (s *UserServiceImpl) allTimeLeaderboard(ctx context.Context, limit int) ([]*dto.LeaderboardEntryDTO, error) {
	zs, err := redis.ZRevRangeWithScores(ctx, consts.LeaderboardKey, 0, int64(limit-1))
	if err == nil && len(zs) > 0 {
		ids := make([]uint64, 0, len(zs))
		scores := make(map[uint64]int, len(zs))
		for _, z := range zs {
			id, err := strconv.ParseUint(z.Member.(string), 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
			scores[id] = int(z.Score)
		}
		users, err := s.userRepo.GetUsersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		byID := make(map[uint64]*model.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}

		entries := make([]*dto.LeaderboardEntryDTO, 0, len(ids))
		for _, id := range ids {
			u := byID[id]
			if u == nil || u.IsDelete || u.IsBan {
				continue
			}
			entries = append(entries, s.toLeaderboardEntry(len(entries)+1, u, scores[id]))
		}
		return entries, nil
	}

	users, err := s.userRepo.GetTopByPoints(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]*dto.LeaderboardEntryDTO, 0, len(users))
	for i, u := range users {
		entries = append(entries, s.toLeaderboardEntry(i+1, u, u.Points))
	}
	return entries, nil
}

func (s *UserServiceImpl) periodLeaderboard(ctx context.Context, since time.Time, limit int) ([]*dto.LeaderboardEntryDTO, error) {
	rows, err := s.userRepo.SumPointsSince(ctx, since, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	users, err := s.userRepo.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	entries := make([]*dto.LeaderboardEntryDTO, 0, len(rows))
	for _, r := range rows {
		u := byID[r.UserID]
		if u == nil || u.IsDelete || u.IsBan {
			continue
		}
		entries = append(entries, s.toLeaderboardEntry(len(entries)+1, u, r.Points))
	}
	return entries, nil
}

func (s *UserServiceImpl) GetCommunityStats(ctx context.Context) (*dto.CommunityStatsDTO, error) {
	stats := &dto.CommunityStatsDTO{}

	var err error
	if stats.TotalUsers, err = s.userRepo.CountUsers(ctx); err != nil {
		return nil, err
	}
	if stats.TotalItems, err = s.itemRepo.CountItems(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveItems, err = s.itemRepo.CountByStatus(ctx, consts.ItemStatusActive); err != nil {
		return nil, err
	}
	if stats.ResolvedItems, err = s.itemRepo.CountByStatus(ctx, consts.ItemStatusResolved); err != nil {
		return nil, err
	}
	if stats.TotalMatches, err = s.itemRepo.CountMatches(ctx); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *UserServiceImpl) toUserDTO(user *model.User) *dto.UserDTO {
	userDTO := &dto.UserDTO{}
	_ = copier.Copy(userDTO, user)
	userDTO.Level = user.Level()
	userDTO.AvatarURL = minio.GetPublicURL(user.AvatarURL)

	userDTO.Badges = make([]dto.BadgeDTO, 0, len(user.Badges))
	for _, b := range user.Badges {
		userDTO.Badges = append(userDTO.Badges, dto.BadgeDTO{Name: b.Name, AwardedAt: b.EarnedAt})
	}
	return userDTO
}

func (s *UserServiceImpl) toLeaderboardEntry(rank int, user *model.User, points int) *dto.LeaderboardEntryDTO {
	return &dto.LeaderboardEntryDTO{
		Rank:      rank,
		UserID:    user.ID,
		Nickname:  user.Nickname,
		AvatarURL: minio.GetPublicURL(user.AvatarURL),
		Points:    points,
		Level:     user.Level(),
	}
}
