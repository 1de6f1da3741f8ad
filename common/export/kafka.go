package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/tableturn/forecaster/common/logger"
	"github.com/tableturn/forecaster/common/models"
)

// KafkaSink publishes each plan hour as a message keyed by location
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewKafkaSink connects a synchronous producer that waits for all replicas
func NewKafkaSink(brokers []string, topic string, log *logger.Logger) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start kafka producer: %w", err)
	}
	return NewKafkaSinkWithProducer(producer, topic, log), nil
}

// NewKafkaSinkWithProducer wraps an existing producer
func NewKafkaSinkWithProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) *KafkaSink {
	if log == nil {
		log = logger.Discard()
	}
	return &KafkaSink{producer: producer, topic: topic, log: log}
}

func (s *KafkaSink) Name() string { return SinkKafka }

func (s *KafkaSink) Write(ctx context.Context, locationID string, plan []models.PlanRecord) (string, error) {
	msgs := make([]*sarama.ProducerMessage, 0, len(plan))
	for _, rec := range plan {
		payload, err := json.Marshal(rec)
		if err != nil {
			return "", fmt.Errorf("failed to marshal plan record: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:     s.topic,
			Key:       sarama.StringEncoder(locationID),
			Value:     sarama.ByteEncoder(payload),
			Timestamp: rec.Timestamp,
		})
	}

	if err := s.producer.SendMessages(msgs); err != nil {
		return "", fmt.Errorf("failed to send plan to %s: %w", s.topic, err)
	}

	s.log.WithLocationID(locationID).Info("plan published", "topic", s.topic, "records", len(msgs))
	return "kafka://" + s.topic, nil
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
