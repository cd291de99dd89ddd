package kafka

import (
	"Reclaim/internal/api/config"
	"context"
	log "log/slog"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// ViewProducer 浏览事件生产者，异步发送不阻塞请求链路
type ViewProducer interface {
	PublishView(ctx context.Context, event *ViewEvent)
	Close() error
}

type viewProducerImpl struct {
	producer sarama.AsyncProducer
	topic    string
}

func NewViewProducer(cfg *config.Config) (ViewProducer, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	producer, err := sarama.NewAsyncProducer(cfg.Kafka.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	// 发送失败只记日志，浏览计数允许丢失
	go func() {
		for err := range producer.Errors() {
			log.Error("view event publish error", "err", err)
		}
	}()

	return &viewProducerImpl{
		producer: producer,
		topic:    cfg.KafkaViewConsumer.Topic,
	}, nil
}

func (s *viewProducerImpl) PublishView(ctx context.Context, event *ViewEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.ErrorContext(ctx, "marshal view event error", "err", err)
		return
	}

	// 以 item_id 作为 key，同一物品的事件落在同一分区
	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(event.ItemID, 10)),
		Value: sarama.ByteEncoder(payload),
	}
}

func (s *viewProducerImpl) Close() error {
	return s.producer.Close()
}
