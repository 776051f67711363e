package worker

import (
	"fmt"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Pool runs background tasks on a bounded set of goroutines.
type Pool struct {
	pool   *ants.Pool
	logger logger.ZapLogger
}

func NewPool(size int, log logger.ZapLogger) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	p, err := ants.NewPool(size,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(v interface{}) {
			log.Error("background task panicked", zap.String("panic", fmt.Sprint(v)))
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Pool{pool: p, logger: log}, nil
}

// Submit schedules task. It fails fast with ants.ErrPoolOverload when every
// worker is busy.
func (p *Pool) Submit(task func()) error {
	return p.pool.Submit(task)
}

// Go submits task and runs it inline when the pool is saturated or closed.
func (p *Pool) Go(task func()) {
	if err := p.pool.Submit(task); err != nil {
		p.logger.Warn("worker pool unavailable, running inline", zap.Error(err))
		task()
	}
}

func (p *Pool) Running() int { return p.pool.Running() }

// Release waits up to timeout for in-flight tasks.
func (p *Pool) Release(timeout time.Duration) error {
	return p.pool.ReleaseTimeout(timeout)
}

// Runner schedules work off the request path.
type Runner interface {
	Go(task func())
}

var _ Runner = (*Pool)(nil)

// Inline runs every task on the calling goroutine.
type Inline struct{}

func (Inline) Go(task func()) { task() }
