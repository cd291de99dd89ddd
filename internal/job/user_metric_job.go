package job

import (
	"Reclaim/internal/model"
	"Reclaim/internal/pkg/logger"
	"Reclaim/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// UserMetricJob 每日落一份用户积分与发布数的快照
type UserMetricJob struct {
	userRepo    repository.UserRepo
	metricsRepo repository.UserMetricsRepo
}

func NewUserMetricJob(userRepo repository.UserRepo, metricsRepo repository.UserMetricsRepo) *UserMetricJob {
	return &UserMetricJob{
		userRepo:    userRepo,
		metricsRepo: metricsRepo,
	}
}

func (s *UserMetricJob) Run() {
	traceID := "job-user-metric-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	ids, err := s.userRepo.ListUserIDs(ctx)
	if err != nil {
		log.ErrorContext(ctx, "list user ids error", "err", err)
		return
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	successCount := 0
	// 分批取用户，避免一次性加载全量
	const batch = 500
	for start := 0; start < len(ids); start += batch {
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}
		users, err := s.userRepo.GetUsersByIDs(ctx, ids[start:end])
		if err != nil {
			log.ErrorContext(ctx, "get users batch error", "err", err)
			continue
		}
		for _, u := range users {
			snapshot := &model.UserMetrics{
				UserID:        u.ID,
				MetricDate:    today,
				TotalPoints:   u.Points,
				ItemsPosted:   u.ItemsPosted,
				ItemsReturned: u.ItemsReturned,
			}
			if err := s.metricsRepo.UpsertDailySnapshot(ctx, snapshot); err != nil {
				log.ErrorContext(ctx, "upsert user snapshot error", "userID", u.ID, "err", err)
				continue
			}
			successCount++
		}
	}

	log.InfoContext(ctx, "user metric job finished",
		"total_count", len(ids),
		"success_count", successCount)
}
