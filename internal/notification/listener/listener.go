package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/events"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxHandleAttempts = 3

type Consumer interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// EventListener feeds domain events from Kafka to a handler. Offsets are
// committed only after the handler ran, so a crash redelivers the message.
type EventListener struct {
	consumer Consumer
	handler  events.Handler
	logger   logger.ZapLogger
	backoff  time.Duration
}

func NewEventListener(consumer Consumer, h events.Handler, logger logger.ZapLogger) *EventListener {
	return &EventListener{
		consumer: consumer,
		handler:  h,
		logger:   logger,
		backoff:  time.Second,
	}
}

func (l *EventListener) Start(ctx context.Context) {
	l.logger.Info("Starting event listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping event listener")
			return
		default:
			msg, err := l.consumer.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				l.sleep(ctx)
				continue
			}
			l.processMessage(ctx, msg)
			if err := l.consumer.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				l.logger.Error("Failed to commit kafka message", zap.Int64("offset", msg.Offset), zap.Error(err))
			}
		}
	}
}

func (l *EventListener) processMessage(ctx context.Context, msg kafka.Message) {
	var event events.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Int64("offset", msg.Offset), zap.Error(err))
		return
	}

	l.logger.Info("Processing event",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
	)

	var err error
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		if err = l.handler.Handle(ctx, &event); err == nil {
			return
		}
		l.logger.Warn("Event handler failed",
			zap.String("event_id", event.EventID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < maxHandleAttempts {
			l.sleep(ctx)
		}
	}
	l.logger.Error("Dropping event after retries",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.Error(err),
	)
}

func (l *EventListener) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(l.backoff):
	}
}
