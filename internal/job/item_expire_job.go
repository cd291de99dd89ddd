package job

import (
	"Reclaim/internal/pkg/consts"
	"Reclaim/internal/pkg/es"
	"Reclaim/internal/pkg/logger"
	"Reclaim/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// ItemExpireJob 把过了有效期的物品置为已过期，同步检索索引
type ItemExpireJob struct {
	itemRepo repository.ItemRepo
	esRepo   es.ItemRepo
}

func NewItemExpireJob(itemRepo repository.ItemRepo, esRepo es.ItemRepo) *ItemExpireJob {
	return &ItemExpireJob{
		itemRepo: itemRepo,
		esRepo:   esRepo,
	}
}

func (s *ItemExpireJob) Run() {
	traceID := "job-item-expire-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	ids, err := s.itemRepo.ExpireOverdue(ctx, time.Now())
	if err != nil {
		log.ErrorContext(ctx, "expire overdue items error", "err", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	successCount := 0
	for _, id := range ids {
		if err := s.esRepo.UpdateStatus(ctx, id, consts.ItemStatusExpired); err != nil {
			log.ErrorContext(ctx, "update es status error", "itemID", id, "err", err)
			continue
		}
		successCount++
	}

	log.InfoContext(ctx, "item expire job finished",
		"expired_count", len(ids),
		"es_synced_count", successCount)
}
