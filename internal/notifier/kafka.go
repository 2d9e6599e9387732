package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ikkim/homestay-backend/pkg/logger"
)

// KafkaNotifier publishes messages to a topic consumed by the SMS/e-mail gateway
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			MaxAttempts:  1,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (k *KafkaNotifier) Notify(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: value,
		Time:  msg.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(msg.EventID)},
		},
	})
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// LogNotifier writes messages to the log; used when no broker is configured
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, msg Message) error {
	logger.Info("Notification", map[string]interface{}{
		"event_id":       msg.EventID,
		"application_id": msg.ApplicationID,
		"recipient":      msg.Recipient,
		"text":           msg.Text,
	})
	return nil
}
