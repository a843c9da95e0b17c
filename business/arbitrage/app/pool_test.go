package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

func TestExecutionPool_RunsDispatchedWork(t *testing.T) {
	var ran atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	p := NewExecutionPool(2, 4, func(context.Context, domain.Opportunity) {
		ran.Add(1)
		wg.Done()
	}, discardLogger())

	for i := 0; i < 3; i++ {
		require.True(t, p.Dispatch(stableOpportunity(time.Now())))
	}
	wg.Wait()

	assert.Equal(t, int32(3), ran.Load())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestExecutionPool_FullQueueRefusesWithoutBlocking(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	p := NewExecutionPool(1, 1, func(context.Context, domain.Opportunity) {
		started <- struct{}{}
		<-release
	}, discardLogger())

	require.True(t, p.Dispatch(stableOpportunity(time.Now())))
	<-started // worker busy

	require.True(t, p.Dispatch(stableOpportunity(time.Now()))) // fills the queue

	done := make(chan bool)
	go func() { done <- p.Dispatch(stableOpportunity(time.Now())) }()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestExecutionPool_ShutdownDrainsAndRefuses(t *testing.T) {
	var ran atomic.Int32
	p := NewExecutionPool(1, 4, func(ctx context.Context, _ domain.Opportunity) {
		time.Sleep(10 * time.Millisecond)
		if ctx.Err() == nil {
			ran.Add(1)
		}
	}, discardLogger())

	for i := 0; i < 3; i++ {
		require.True(t, p.Dispatch(stableOpportunity(time.Now())))
	}

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(3), ran.Load())
	assert.False(t, p.Dispatch(stableOpportunity(time.Now())))
	assert.Equal(t, 0, p.Pending())
}

func TestExecutionPool_ShutdownTimeoutCancelsInFlight(t *testing.T) {
	cancelled := make(chan struct{})
	p := NewExecutionPool(1, 1, func(ctx context.Context, _ domain.Opportunity) {
		<-ctx.Done()
		close(cancelled)
	}, discardLogger())

	require.True(t, p.Dispatch(stableOpportunity(time.Now())))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight execution was not cancelled")
	}
}
