package job

import (
	"Reclaim/internal/pkg/logger"
	"Reclaim/internal/pkg/mongo"
	"Reclaim/internal/repository"
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// ChatReconcileJob 夜间校准：用消息日志的权威未读数回写缓存计数,
// 修正推送丢失或并发更新造成的漂移
type ChatReconcileJob struct {
	convRepo repository.ConversationRepo
	msgRepo  mongo.MessageRepo
}

func NewChatReconcileJob(convRepo repository.ConversationRepo, msgRepo mongo.MessageRepo) *ChatReconcileJob {
	return &ChatReconcileJob{
		convRepo: convRepo,
		msgRepo:  msgRepo,
	}
}

func (s *ChatReconcileJob) Run() {
	traceID := "job-chat-reconcile-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	convIDs, err := s.convRepo.ListActiveIDs(ctx)
	if err != nil {
		log.ErrorContext(ctx, "list active conversations error", "err", err)
		return
	}

	fixedCount := 0
	for _, convID := range convIDs {
		members, err := s.convRepo.GetMembers(ctx, convID)
		if err != nil {
			log.ErrorContext(ctx, "get members error", "convID", convID, "err", err)
			continue
		}
		for _, m := range members {
			authoritative, err := s.msgRepo.CountUnread(ctx, convID, m.UserID)
			if err != nil {
				log.ErrorContext(ctx, "count unread error", "convID", convID, "userID", m.UserID, "err", err)
				continue
			}
			if int(authoritative) == m.UnreadCount {
				continue
			}
			if err := s.convRepo.SetUnread(ctx, convID, m.UserID, int(authoritative)); err != nil {
				log.ErrorContext(ctx, "set unread error", "convID", convID, "userID", m.UserID, "err", err)
				continue
			}
			fixedCount++
		}
	}

	log.InfoContext(ctx, "chat reconcile job finished",
		"conversation_count", len(convIDs),
		"fixed_count", fixedCount)
}
