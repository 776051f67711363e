package mailer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryingSender retries delivery a fixed number of times with a constant delay.
type RetryingSender struct {
	next     Sender
	attempts int
	delay    time.Duration
	logger   logger.ZapLogger
}

func NewRetryingSender(next Sender, attempts int, delay time.Duration, log logger.ZapLogger) *RetryingSender {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryingSender{next: next, attempts: attempts, delay: delay, logger: log}
}

func (r *RetryingSender) Send(ctx context.Context, msg *Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	attempt := 0
	op := func() error {
		attempt++
		err := r.next.Send(ctx, msg)
		if errors.Is(err, ErrNoRecipients) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("mail delivery failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.attempts),
			zap.Duration("wait", wait),
			zap.String("to", strings.Join(msg.To, ",")),
			zap.Error(err),
		)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.delay), uint64(r.attempts-1)),
		ctx,
	)
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		r.logger.Error("mail delivery failed after max retries",
			zap.Int("attempts", attempt),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return err
	}
	return nil
}
