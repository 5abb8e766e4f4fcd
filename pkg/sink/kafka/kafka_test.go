package kafka_test

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/debugit-log/debugit-go/pkg/log"
	"github.com/debugit-log/debugit-go/pkg/sink/kafka"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

var ts = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestMessage(t *testing.T) {
	e := log.NewEvent(log.LevelWarn, "slow", map[string]any{"ms": 900}, ts, false, "[db.go:9]")
	msg := kafka.Message(e)

	assert.Equal(t, "warn", string(msg.Key))
	assert.Equal(t, log.Render(e), string(msg.Value))
	assert.Equal(t, ts, msg.Time)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, kafka.HeaderLevel, msg.Headers[0].Key)
	assert.Equal(t, "[db.go:9]", string(msg.Headers[1].Value))

	msg = kafka.Message(log.NewEvent(log.LevelInfo, "x", nil, ts, false, ""))
	assert.Len(t, msg.Headers, 1)
}

func TestDeliverWritesOneMessage(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafkago.Message) bool {
		return len(msgs) == 1 && string(msgs[0].Key) == "error"
	})).Return(nil).Once()
	w.On("Close").Return(nil)

	s, err := kafka.New(kafka.Config{}, kafka.WithWriter(w))
	require.NoError(t, err)

	require.NoError(t, s.Deliver(log.NewEvent(log.LevelError, "boom", nil, ts, false, "")))
	require.NoError(t, s.Close())
	w.AssertExpectations(t)
}

func TestDeliverSetsDeadline(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(errors.New("leader not available"))

	s, err := kafka.New(kafka.Config{WriteTimeout: time.Second}, kafka.WithWriter(w))
	require.NoError(t, err)
	assert.EqualError(t, s.Deliver(log.NewEvent(log.LevelInfo, "x", nil, ts, false, "")), "leader not available")
}

func TestNewValidation(t *testing.T) {
	_, err := kafka.New(kafka.Config{Topic: "logs"})
	assert.ErrorIs(t, err, kafka.ErrNoBrokers)

	_, err = kafka.New(kafka.Config{Brokers: []string{"localhost:9092"}})
	assert.ErrorIs(t, err, kafka.ErrNoTopic)

	s, err := kafka.New(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "logs"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
