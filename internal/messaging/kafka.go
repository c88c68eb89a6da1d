package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cartrec/internal/config"
	"github.com/temcen/cartrec/pkg/models"
)

// ErrDisabled is returned by NewActivityPublisher when kafka is turned off
var ErrDisabled = errors.New("messaging disabled")

const defaultWriteTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ActivityPublisher streams recorded shopper activity to Kafka
type ActivityPublisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
	logger       *logrus.Logger
}

func NewActivityPublisher(cfg *config.Config, logger *logrus.Logger) (*ActivityPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, ErrDisabled
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka enabled without brokers")
	}

	topic := cfg.Kafka.Topics.UserActivity
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Key by user so a shopper's events stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	return newActivityPublisher(writer, topic, cfg.Kafka.WriteTimeout, logger), nil
}

func newActivityPublisher(writer messageWriter, topic string, writeTimeout time.Duration, logger *logrus.Logger) *ActivityPublisher {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &ActivityPublisher{
		writer:       writer,
		topic:        topic,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

func (p *ActivityPublisher) PublishActivity(ctx context.Context, event *models.ActivityEvent) error {
	message, err := encodeActivity(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.WithError(err).WithField("event_id", event.EventID).Error("Failed to publish activity to Kafka")
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"type":     event.Type,
		"topic":    p.topic,
	}).Debug("Activity published to Kafka")

	return nil
}

func (p *ActivityPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	return nil
}

func encodeActivity(event *models.ActivityEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal activity event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "activity_type", Value: []byte(event.Type)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
