package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"jobhub/internal/config"
	"jobhub/pkg/logger"
)

// InitKafka 初始化 Kafka 生产者
func InitKafka(cfg *config.KafkaConfig) (sarama.SyncProducer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll // 等待所有副本确认
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("创建 Kafka 生产者失败: %w", err)
	}
	logger.Info("Kafka 生产者创建成功", zap.Strings("brokers", cfg.Brokers))
	return producer, nil
}

// IndexSynced 索引写入成功后对外发布的通知
type IndexSynced struct {
	TargetType string    `json:"target_type"`
	TargetID   int64     `json:"target_id"`
	UpdateType string    `json:"update_type"`
	Outcome    string    `json:"outcome"`
	DocumentID string    `json:"document_id"`
	SyncedAt   time.Time `json:"synced_at"`
}

// KafkaNotifier 把同步结果发到 Kafka，下游（缓存失效、推荐等）按需订阅
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaNotifier(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

// Notify 以 target_type:target_id 为 key，同一实体的通知落在同一分区内有序
func (n *KafkaNotifier) Notify(_ context.Context, msg IndexSynced) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, _, err = n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(fmt.Sprintf("%s:%d", msg.TargetType, msg.TargetID)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("发送同步通知失败: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
