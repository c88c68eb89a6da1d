package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/cartrec/internal/config"
	"github.com/temcen/cartrec/pkg/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testEvent() *models.ActivityEvent {
	return &models.ActivityEvent{
		EventID:    uuid.New(),
		Type:       models.ActivityView,
		UserID:     "u1",
		ProductID:  "p1",
		CategoryID: "c1",
		ViewTime:   30,
		Timestamp:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncodeActivity(t *testing.T) {
	event := testEvent()

	message, err := encodeActivity(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("u1"), message.Key)
	assert.Equal(t, event.Timestamp, message.Time)

	headers := make(map[string]string)
	for _, header := range message.Headers {
		headers[header.Key] = string(header.Value)
	}
	assert.Equal(t, event.EventID.String(), headers["event_id"])
	assert.Equal(t, "view", headers["activity_type"])
	assert.Equal(t, "2024-05-01T12:00:00Z", headers["timestamp"])

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(message.Value, &payload))
	assert.Equal(t, "p1", payload["product_id"])
	assert.Equal(t, float64(30), payload["view_time"])
}

func TestActivityPublisher(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	t.Run("writes one message per event", func(t *testing.T) {
		writer := &fakeWriter{}
		publisher := newActivityPublisher(writer, "user-activity", 0, logger)

		require.NoError(t, publisher.PublishActivity(context.Background(), testEvent()))
		assert.Len(t, writer.messages, 1)
		assert.Equal(t, defaultWriteTimeout, publisher.writeTimeout)

		require.NoError(t, publisher.Close())
		assert.True(t, writer.closed)
	})

	t.Run("wraps write errors", func(t *testing.T) {
		writer := &fakeWriter{err: errors.New("leader not available")}
		publisher := newActivityPublisher(writer, "user-activity", time.Second, logger)

		err := publisher.PublishActivity(context.Background(), testEvent())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "leader not available")
	})

	t.Run("disabled by config", func(t *testing.T) {
		_, err := NewActivityPublisher(&config.Config{}, logger)
		assert.ErrorIs(t, err, ErrDisabled)
	})

	t.Run("enabled without brokers", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Kafka.Enabled = true

		_, err := NewActivityPublisher(cfg, logger)
		assert.Error(t, err)
	})
}
