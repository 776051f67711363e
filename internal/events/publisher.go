package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/worker"
	"go.uber.org/zap"
)

// Producer writes raw messages to a topic.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type KafkaPublisher struct {
	producer Producer
}

func NewKafkaPublisher(p Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload interface{}) error {
	e, err := New(eventType, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, key, value)
}

// LocalPublisher hands events to an in-process handler on the worker pool.
// Used when no broker is configured.
type LocalPublisher struct {
	handler Handler
	runner  worker.Runner
	timeout time.Duration
	logger  logger.ZapLogger
}

func NewLocalPublisher(h Handler, r worker.Runner, timeout time.Duration, log logger.ZapLogger) *LocalPublisher {
	return &LocalPublisher{handler: h, runner: r, timeout: timeout, logger: log}
}

func (p *LocalPublisher) Publish(_ context.Context, eventType, key string, payload interface{}) error {
	e, err := New(eventType, payload)
	if err != nil {
		return err
	}
	p.runner.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.handler.Handle(ctx, e); err != nil {
			p.logger.Error("failed to handle event",
				zap.String("event_type", e.EventType),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	})
	return nil
}
