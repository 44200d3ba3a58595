package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/i474232898/forecast-sync/internal/weather"
)

// messageWriter is the part of *kafka.Writer the notifier needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures KafkaNotifier.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// WriteTimeout bounds one publish; defaults to 5s.
	WriteTimeout time.Duration
}

// KafkaNotifier publishes notifications as JSON events keyed by date.
type KafkaNotifier struct {
	writer  messageWriter
	timeout time.Duration
}

// notificationEvent is the wire shape on the topic.
type notificationEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	RecordID  int64     `json:"recordId"`
	Date      string    `json:"date"`
	DateMs    int64     `json:"dateMs"`
	Condition string    `json:"condition"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka notifier: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka notifier: topic is required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaNotifier(w, cfg.WriteTimeout), nil
}

func newKafkaNotifier(w messageWriter, timeout time.Duration) *KafkaNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaNotifier{writer: w, timeout: timeout}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n weather.Notification) error {
	value, err := json.Marshal(notificationEvent{
		ID:        n.ID.String(),
		Title:     n.Title,
		Text:      n.Text,
		RecordID:  n.RecordID,
		Date:      weather.DateTime(n.Date).Format("2006-01-02"),
		DateMs:    n.Date,
		Condition: string(n.Condition),
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("kafka notifier: encode: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(n.Date, 10)),
		Value: value,
		Time:  n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("kafka notifier: publish: %w", err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
