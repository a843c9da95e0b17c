// Package reporter renders hub events for a human: a console table in CLI mode,
// the Bubble Tea dashboard in TUI mode.
package reporter

import (
	"context"
	"sync"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

const subscriberBuffer = 256

// subscription pumps hub events into handle until stopped.
type subscription struct {
	mu          sync.Mutex
	unsubscribe func()
	done        chan struct{}
}

func (s *subscription) start(ctx context.Context, hub *app.Hub, handle func(domain.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	events, unsubscribe := hub.Subscribe(subscriberBuffer)
	s.unsubscribe = unsubscribe
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				handle(ev)
			}
		}
	}(s.done)
}

func (s *subscription) stop() {
	s.mu.Lock()
	unsubscribe, done := s.unsubscribe, s.done
	s.unsubscribe, s.done = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	unsubscribe()
	<-done
}
