package kafka

import (
	"Reclaim/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// ViewsHandler 消费浏览事件，按物品按天聚合到指标表
type ViewsHandler struct {
	metricRepo repository.ItemMetricRepo
}

func NewViewsHandler(metricRepo repository.ItemMetricRepo) *ViewsHandler {
	return &ViewsHandler{metricRepo: metricRepo}
}

func (s *ViewsHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("item view consumer setup")
	return nil
}

func (s *ViewsHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("item view consumer cleanup")
	return nil
}

func (s *ViewsHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-view consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-view process batch error", "err", err)
		return err
	}
	return nil
}

func (s *ViewsHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event ViewEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// 脏消息跳过，不阻塞位点
		log.ErrorContext(ctx, "unmarshal view event error", "err", err)
		return nil
	}
	if event.ItemID == 0 {
		return nil
	}

	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())

	return s.metricRepo.IncrDailyViews(ctx, event.ItemID, day, 1)
}
