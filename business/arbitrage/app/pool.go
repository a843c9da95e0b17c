package app

import (
	"context"
	"sync"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	defaultWorkers   = 2
	defaultQueueSize = 8
)

// ExecuteFunc runs one execution attempt.
type ExecuteFunc func(ctx context.Context, opp domain.Opportunity)

// ExecutionPool runs executions on a fixed set of workers fed by a bounded queue.
// Worker contexts are not derived from the scanner, so stopping a scan never
// cancels a trade already in flight.
type ExecutionPool struct {
	jobs    chan domain.Opportunity
	execute ExecuteFunc
	logger  logger.LoggerInterface

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewExecutionPool starts workers goroutines reading from a queue of queueSize.
func NewExecutionPool(workers, queueSize int, execute ExecuteFunc, log logger.LoggerInterface) *ExecutionPool {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &ExecutionPool{
		jobs:    make(chan domain.Opportunity, queueSize),
		execute: execute,
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	return p
}

func (p *ExecutionPool) worker(id int) {
	defer p.wg.Done()
	for opp := range p.jobs {
		p.logger.Debug(p.ctx, "worker picked up opportunity", "worker", id, "opportunity_id", opp.ID)
		p.execute(p.ctx, opp)
	}
}

// Dispatch queues opp and returns immediately. It returns false when the queue is
// full or the pool is shut down; the caller keeps the candidate valid in that case.
func (p *ExecutionPool) Dispatch(opp domain.Opportunity) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}

	select {
	case p.jobs <- opp:
		return true
	default:
		p.logger.Warn(p.ctx, "execution queue full, candidate not dispatched",
			"opportunity_id", opp.ID, "queue_size", cap(p.jobs))
		return false
	}
}

// Pending returns the number of queued, not yet started executions.
func (p *ExecutionPool) Pending() int {
	return len(p.jobs)
}

// Shutdown stops accepting work and waits for queued executions to finish.
// If ctx expires first, in-flight executions are cancelled.
func (p *ExecutionPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
