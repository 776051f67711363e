package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Publish(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

type recordingHandler struct {
	mu     sync.Mutex
	events []*Event
}

func (h *recordingHandler) Handle(_ context.Context, e *Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func TestKafkaPublisherEnvelope(t *testing.T) {
	p := new(mockProducer)
	var captured []byte
	p.On("Publish", mock.Anything, "user-1", mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).([]byte) }).
		Return(nil)

	pub := NewKafkaPublisher(p)
	err := pub.Publish(context.Background(), UserRegistered, "user-1", UserRegisteredPayload{
		UserID: "user-1", Email: "a@example.com", FirstName: "Achieng",
	})
	require.NoError(t, err)
	p.AssertExpectations(t)

	var e Event
	require.NoError(t, json.Unmarshal(captured, &e))
	assert.Equal(t, UserRegistered, e.EventType)
	assert.NotEmpty(t, e.EventID)
	assert.WithinDuration(t, time.Now(), e.Timestamp, time.Minute)

	var payload UserRegisteredPayload
	require.NoError(t, e.Decode(&payload))
	assert.Equal(t, "Achieng", payload.FirstName)
}

func TestLocalPublisherDispatches(t *testing.T) {
	h := &recordingHandler{}
	pub := NewLocalPublisher(h, worker.Inline{}, time.Second, logger.NewNop())

	require.NoError(t, pub.Publish(context.Background(), PaymentCompleted, "pay-1", PaymentCompletedPayload{PaymentID: "pay-1"}))

	require.Len(t, h.events, 1)
	assert.Equal(t, PaymentCompleted, h.events[0].EventType)
}
