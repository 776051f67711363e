package listener

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/events"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConsumer serves queued messages then blocks until the context ends.
type fakeConsumer struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	drained   chan struct{}
}

func (c *fakeConsumer) FetchMessage(ctx context.Context) (kafka.Message, error) {
	c.mu.Lock()
	if len(c.queue) > 0 {
		m := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()
	select {
	case c.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (c *fakeConsumer) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		c.committed = append(c.committed, m.Offset)
	}
	return nil
}

type flakyHandler struct {
	mu       sync.Mutex
	failures int
	calls    map[string]int
}

func (h *flakyHandler) Handle(_ context.Context, e *events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls[e.EventType]++
	if h.failures > 0 {
		h.failures--
		return errors.New("smtp down")
	}
	return nil
}

func message(t *testing.T, offset int64, eventType string) kafka.Message {
	e, err := events.New(eventType, map[string]string{"user_id": "u1"})
	require.NoError(t, err)
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Value: b}
}

func TestEventListenerRetriesAndCommits(t *testing.T) {
	consumer := &fakeConsumer{
		queue: []kafka.Message{
			message(t, 1, events.UserRegistered),
			{Offset: 2, Value: []byte("not json")},
			message(t, 3, events.PaymentCompleted),
		},
		drained: make(chan struct{}, 1),
	}
	h := &flakyHandler{failures: 1, calls: map[string]int{}}

	l := NewEventListener(consumer, h, logger.NewNop())
	l.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	select {
	case <-consumer.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not drain the queue")
	}
	cancel()
	<-done

	assert.Equal(t, 2, h.calls[events.UserRegistered])
	assert.Equal(t, 1, h.calls[events.PaymentCompleted])
	assert.Equal(t, []int64{1, 2, 3}, consumer.committed)
}

func TestEventListenerDropsAfterMaxAttempts(t *testing.T) {
	consumer := &fakeConsumer{
		queue: []kafka.Message{
			message(t, 7, events.PasswordChanged),
			message(t, 8, events.UserRegistered),
		},
		drained: make(chan struct{}, 1),
	}
	h := &flakyHandler{failures: maxHandleAttempts, calls: map[string]int{}}

	l := NewEventListener(consumer, h, logger.NewNop())
	l.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	select {
	case <-consumer.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not drain the queue")
	}
	cancel()
	<-done

	assert.Equal(t, maxHandleAttempts, h.calls[events.PasswordChanged])
	assert.Equal(t, 1, h.calls[events.UserRegistered])
	assert.Equal(t, []int64{7, 8}, consumer.committed)
}
